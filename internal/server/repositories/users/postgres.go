package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/adminaccess/internal/common"
	"github.com/dmitrijs2005/adminaccess/internal/dbx"
	"github.com/dmitrijs2005/adminaccess/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

const selectUser = `SELECT u.id, u.email, u.display_name, u.password_hash,
       u.reset_token, u.reset_token_expires_at, u.created_at,
       r.id, r.name, r.permissions
  FROM users u
  LEFT JOIN user_roles ur ON ur.user_id = u.id
  LEFT JOIN roles r ON r.id = ur.role_id
`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, selectUser+` WHERE lower(u.email) = lower($1)`, email)
}

func (r *PostgresRepository) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	return r.findOne(ctx, selectUser+` WHERE u.reset_token = $1`, token)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		user       models.User
		resetToken sql.NullString
		resetExp   sql.NullTime
		roleID     sql.NullInt64
		roleName   sql.NullString
		rolePerms  sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash,
		&resetToken, &resetExp, &user.CreatedAt,
		&roleID, &roleName, &rolePerms,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if resetToken.Valid && resetExp.Valid {
		user.SetResetToken(resetToken.String, resetExp.Time)
	}
	if roleID.Valid {
		user.Role = &models.Role{ID: roleID.Int64, Name: roleName.String, Permissions: rolePerms.String}
	}

	return &user, nil
}

func (r *PostgresRepository) Save(ctx context.Context, user *models.User) error {
	if b, ok := r.db.(dbx.TxBeginner); ok {
		return dbx.WithTx(ctx, b, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return save(ctx, tx, user)
		})
	}
	// already inside a caller's transaction
	return save(ctx, r.db, user)
}

func save(ctx context.Context, db dbx.DBTX, user *models.User) error {
	if !user.IsPersisted() {
		return insert(ctx, db, user)
	}

	var id string
	err := db.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, user.ID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE users
		    SET email = $1, password_hash = $2, display_name = $3,
		        reset_token = $4, reset_token_expires_at = $5
		  WHERE id = $6`,
		user.Email, user.PasswordHash, user.DisplayName,
		user.ResetToken, user.ResetTokenExpiresAt, user.ID)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func insert(ctx context.Context, db dbx.DBTX, user *models.User) error {
	err := db.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash, display_name)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		user.Email, user.PasswordHash, user.DisplayName).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return common.ErrDuplicateEmail
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) StoreResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token = $1, reset_token_expires_at = $2 WHERE id = $3`,
		token, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

// ConsumeResetToken relies on the row lock taken by UPDATE: a concurrent
// consumer re-checks reset_token after the first commits and matches nothing.
func (r *PostgresRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		    SET password_hash = CASE WHEN $2 = '' THEN password_hash ELSE $2 END,
		        reset_token = NULL, reset_token_expires_at = NULL
		  WHERE reset_token = $1`,
		token, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) AssignRole(ctx context.Context, userID string, roleID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, roleID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindIDByEmail(ctx context.Context, email string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE lower(email) = lower($1)`, email).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// Package services contains server-side business logic. AccessService
// handles registration, login, password recovery and permission checks for
// administrative accounts.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/adminaccess/internal/common"
	"github.com/dmitrijs2005/adminaccess/internal/dbx"
	"github.com/dmitrijs2005/adminaccess/internal/logging"
	"github.com/dmitrijs2005/adminaccess/internal/server/auth"
	"github.com/dmitrijs2005/adminaccess/internal/server/models"
	"github.com/dmitrijs2005/adminaccess/internal/server/notify"
	"github.com/dmitrijs2005/adminaccess/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/adminaccess/internal/server/repositories/users"
	"github.com/thejerf/abtime"
)

const DefaultRecoveryTTL = time.Hour

// AccessOptions tunes AccessService. Zero values select the defaults.
type AccessOptions struct {
	DefaultRoleID int64
	RecoveryTTL   time.Duration
	Clock         abtime.AbstractTime
}

// AccessService keeps no state between calls; everything it holds is
// read-only after construction.
type AccessService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	tokens      *auth.TokenService
	roles       *auth.RoleEvaluator
	notifier    notify.Notifier
	log         logging.Logger

	defaultRoleID int64
	recoveryTTL   time.Duration
	clock         abtime.AbstractTime
}

// NewAccessService wires the service. db may be nil when the repository
// manager does not need a connection (memory storage); writes then run
// without a transaction.
func NewAccessService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenService,
	roles *auth.RoleEvaluator,
	notifier notify.Notifier,
	log logging.Logger,
	opts AccessOptions,
) *AccessService {
	if opts.DefaultRoleID == 0 {
		opts.DefaultRoleID = models.RoleIDRestaurantAdmin
	}
	if opts.RecoveryTTL <= 0 {
		opts.RecoveryTTL = DefaultRecoveryTTL
	}
	if opts.Clock == nil {
		opts.Clock = abtime.NewRealTime()
	}
	if log == nil {
		log = logging.Nop{}
	}
	if roles == nil {
		roles = auth.NewRoleEvaluator()
	}

	return &AccessService{
		db:            db,
		repomanager:   m,
		hasher:        hasher,
		tokens:        tokens,
		roles:         roles,
		notifier:      notifier,
		log:           log.With("module", "access"),
		defaultRoleID: opts.DefaultRoleID,
		recoveryTTL:   opts.RecoveryTTL,
		clock:         opts.Clock,
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && domain != "" &&
		!strings.Contains(domain, "@") &&
		!strings.ContainsAny(email, " \t\r\n")
}

func (s *AccessService) users() users.Repository {
	return s.repomanager.Users(s.db)
}

// inTx runs fn against a transaction-bound repository, or against the plain
// repository when there is no database handle.
func (s *AccessService) inTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error {
	if s.db == nil {
		return fn(ctx, s.users())
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, s.repomanager.Users(tx))
	})
}

// Register creates an account holding the default role. No token is issued.
func (s *AccessService) Register(ctx context.Context, email, password, displayName string) error {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return fmt.Errorf("%w: malformed email", common.ErrInvalidInput)
	}
	if password == "" {
		return fmt.Errorf("%w: empty password", common.ErrInvalidInput)
	}

	_, err := s.users().FindByEmail(ctx, email)
	switch {
	case err == nil:
		return common.ErrDuplicateEmail
	case !errors.Is(err, common.ErrorNotFound):
		return fmt.Errorf("looking up %s: %w", email, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(displayName),
	}

	err = s.inTx(ctx, func(ctx context.Context, repo users.Repository) error {
		if err := repo.Save(ctx, user); err != nil {
			return err
		}
		id := user.ID
		if id == "" {
			var err error
			if id, err = repo.FindIDByEmail(ctx, email); err != nil {
				return err
			}
		}
		return repo.AssignRole(ctx, id, s.defaultRoleID)
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return common.ErrDuplicateEmail
		}
		return fmt.Errorf("registering %s: %w", email, err)
	}

	s.log.Info(ctx, "user registered", "email", email, "role_id", s.defaultRoleID)
	return nil
}

// Login verifies credentials and returns a session token. It never writes
// to storage; a hash with outdated parameters is only reported in the log.
func (s *AccessService) Login(ctx context.Context, email, password string) (string, error) {
	email = NormalizeEmail(email)

	user, err := s.users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrUserNotFound
		}
		return "", fmt.Errorf("looking up %s: %w", email, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.log.Info(ctx, "login rejected", "email", email)
		return "", common.ErrInvalidCredentials
	}

	token, err := s.tokens.IssueSessionToken(auth.SessionClaims{
		UserID:   user.ID,
		Email:    user.Email,
		RoleName: user.RoleName(auth.NoRoleName),
	})
	if err != nil {
		return "", err
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.log.Info(ctx, "stored password hash uses outdated parameters", "email", email)
	}

	s.log.Info(ctx, "user logged in", "email", email, "role", user.RoleName(auth.NoRoleName))
	return token, nil
}

// RequestRecovery attaches a fresh recovery token to the account and hands
// it to the notifier. The raw token is returned to the caller.
func (s *AccessService) RequestRecovery(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)

	repo := s.users()
	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrEmailNotRegistered
		}
		return "", fmt.Errorf("looking up %s: %w", email, err)
	}

	token, err := s.tokens.IssueRecoveryToken()
	if err != nil {
		return "", err
	}

	if err := repo.StoreResetToken(ctx, user.ID, token, s.clock.Now().Add(s.recoveryTTL)); err != nil {
		return "", fmt.Errorf("storing recovery token: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.SendRecoveryLink(ctx, user.Email, token); err != nil {
			s.log.Error(ctx, "recovery link delivery failed", "email", user.Email, "error", err)
		}
	}

	s.log.Info(ctx, "recovery requested", "email", email)
	return token, nil
}

// CompleteRecovery consumes a recovery token and sets a new password. A
// token works once; an expired one is discarded.
func (s *AccessService) CompleteRecovery(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return fmt.Errorf("%w: token and password are required", common.ErrInvalidInput)
	}

	repo := s.users()
	user, err := repo.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrRecoveryTokenInvalid
		}
		return fmt.Errorf("looking up recovery token: %w", err)
	}

	if !user.RecoveryValidAt(s.clock.Now()) {
		if err := repo.ConsumeResetToken(ctx, token, ""); err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "clearing expired recovery token failed", "email", user.Email, "error", err)
		}
		return common.ErrRecoveryTokenExpired
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := repo.ConsumeResetToken(ctx, token, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrRecoveryTokenInvalid
		}
		return fmt.Errorf("storing new password: %w", err)
	}

	s.log.Info(ctx, "password reset", "email", user.Email)
	return nil
}

// CheckPermission reports whether the account's role grants permission.
// Unknown accounts are simply not permitted.
func (s *AccessService) CheckPermission(ctx context.Context, email, permission string) (bool, error) {
	email = NormalizeEmail(email)

	user, err := s.users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("looking up %s: %w", email, err)
	}

	return s.roles.Evaluate(user.Role, permission), nil
}

// VerifySession returns the claims of a valid session token and
// common.ErrTokenInvalid otherwise.
func (s *AccessService) VerifySession(token string) (*auth.SessionClaims, error) {
	claims, res := s.tokens.VerifySessionToken(token)
	if res != auth.TokenValid {
		s.log.Debug(context.Background(), "session token rejected", "reason", res.String())
		return nil, res.Err()
	}
	return claims, nil
}

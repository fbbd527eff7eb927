package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/adminaccess/internal/server/models"
)

// Repository persists administrative accounts and their reset-token state.
// Email arguments are matched case-insensitively.
type Repository interface {
	// FindByEmail returns the user with its role joined in, or
	// common.ErrorNotFound.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByResetToken returns the user holding token, or common.ErrorNotFound.
	FindByResetToken(ctx context.Context, token string) (*models.User, error)
	// Save inserts a user without an ID (assigning ID and CreatedAt) and
	// updates one with an ID. A taken email yields common.ErrDuplicateEmail.
	Save(ctx context.Context, user *models.User) error
	// StoreResetToken sets the pending reset pair of a user and touches no
	// other column. An unknown id yields common.ErrorNotFound.
	StoreResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	// ConsumeResetToken clears the reset pair of the user still holding
	// token and, when passwordHash is non-empty, replaces the password hash
	// in the same write. If no user holds token any more it returns
	// common.ErrorNotFound, so at most one caller consumes a token.
	ConsumeResetToken(ctx context.Context, token, passwordHash string) error
	// AssignRole links a user to a role. Repeating it is a no-op.
	AssignRole(ctx context.Context, userID string, roleID int64) error
	FindIDByEmail(ctx context.Context, email string) (string, error)
}

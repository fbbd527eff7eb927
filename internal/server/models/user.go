// Package models defines the account records persisted by the user store.
package models

import "time"

// User is an administrative account.
//
// ResetToken and ResetTokenExpiresAt are either both nil or both set; use
// SetResetToken and ClearResetToken rather than assigning them directly.
type User struct {
	// ID is assigned by storage. Empty means the record was never persisted.
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	// PasswordHash is the hasher output. Never serialised or logged.
	PasswordHash string `json:"-"`

	ResetToken          *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	Role      *Role     `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsPersisted reports whether storage has assigned an ID.
func (u *User) IsPersisted() bool {
	return u.ID != ""
}

// SetResetToken attaches a recovery token valid until expiresAt.
func (u *User) SetResetToken(token string, expiresAt time.Time) {
	u.ResetToken = &token
	u.ResetTokenExpiresAt = &expiresAt
}

// ClearResetToken drops any pending recovery.
func (u *User) ClearResetToken() {
	u.ResetToken = nil
	u.ResetTokenExpiresAt = nil
}

// HasPendingRecovery reports whether a recovery token is attached.
func (u *User) HasPendingRecovery() bool {
	return u.ResetToken != nil && u.ResetTokenExpiresAt != nil
}

// RecoveryValidAt reports whether the attached token is still usable at now.
// The token stops being valid at the expiry instant itself.
func (u *User) RecoveryValidAt(now time.Time) bool {
	return u.HasPendingRecovery() && now.Before(*u.ResetTokenExpiresAt)
}

// RoleName returns the role's name, or fallback when no role is assigned.
func (u *User) RoleName(fallback string) string {
	if u.Role == nil || u.Role.Name == "" {
		return fallback
	}
	return u.Role.Name
}

// Package common defines shared constants, sentinel errors and small helpers
// used across adminaccess layers. Callers should use errors.Is to match the
// sentinel values and Kind to obtain a stable tag for boundary mapping.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Infrastructure failure that is not part of the domain taxonomy.
	ErrorInternal = errors.New("internal error")

	// Account-access taxonomy.
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailNotRegistered   = errors.New("email not registered")
	ErrInvalidInput         = errors.New("invalid input")
	ErrRecoveryTokenInvalid = errors.New("invalid recovery token")
	ErrRecoveryTokenExpired = errors.New("recovery token expired")

	// Session token could not be verified (malformed, bad signature or expired).
	ErrTokenInvalid = errors.New("invalid token")
)

// kinds is ordered: the first match wins.
var kinds = []struct {
	err  error
	kind string
}{
	{ErrDuplicateEmail, "duplicate_email"},
	{ErrUserNotFound, "user_not_found"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrEmailNotRegistered, "email_not_registered"},
	{ErrInvalidInput, "invalid_input"},
	{ErrRecoveryTokenInvalid, "recovery_token_invalid"},
	{ErrRecoveryTokenExpired, "recovery_token_expired"},
	{ErrTokenInvalid, "token_invalid"},
	{ErrorNotFound, "not_found"},
}

// Kind returns a stable tag for err. Nil yields "", anything outside the
// taxonomy yields "internal".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

// Package notify delivers password-recovery links. Delivery itself (mail
// relay, SMS) happens outside this module; notifiers hand the message off.
package notify

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Notifier hands a recovery token to whatever delivers it to the user.
type Notifier interface {
	SendRecoveryLink(ctx context.Context, email, token string) error
}

// RecoveryMessage is the payload handed to delivery.
type RecoveryMessage struct {
	Email       string    `json:"email"`
	Token       string    `json:"token"`
	Link        string    `json:"link"`
	RequestedAt time.Time `json:"requested_at"`
}

// RecoveryLink appends token as the "token" query parameter of base. An
// empty or unparsable base yields just the query string.
func RecoveryLink(base, token string) string {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil || base == "" {
		return "?" + url.Values{"token": {token}}.Encode()
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

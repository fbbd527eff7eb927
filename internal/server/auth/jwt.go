package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/adminaccess/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/thejerf/abtime"
)

const (
	// DefaultSessionTTL is the fixed session expiry horizon.
	DefaultSessionTTL = 24 * time.Hour

	// RecoveryTokenBytes is the entropy of a recovery token (256 bits).
	// The hex rendering is twice as long.
	RecoveryTokenBytes = 32

	// NoRoleName is carried in session claims when the user has no role.
	NoRoleName = "sin_rol"
)

// SessionClaims identifies a logged-in user. It travels inside the signed
// token and is never stored server-side.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	RoleName string `json:"rol"`
}

// VerifyResult is the outcome of VerifySessionToken. Callers treat every
// non-valid result the same way; the distinction exists for logs.
type VerifyResult int

const (
	TokenValid VerifyResult = iota
	TokenMalformed
	TokenSignatureInvalid
	TokenExpired
)

func (r VerifyResult) String() string {
	switch r {
	case TokenValid:
		return "valid"
	case TokenMalformed:
		return "malformed"
	case TokenSignatureInvalid:
		return "signature_invalid"
	case TokenExpired:
		return "expired"
	default:
		return fmt.Sprintf("VerifyResult(%d)", int(r))
	}
}

// Err is nil for TokenValid and wraps common.ErrTokenInvalid otherwise.
func (r VerifyResult) Err() error {
	if r == TokenValid {
		return nil
	}
	return fmt.Errorf("%w: %s", common.ErrTokenInvalid, r)
}

// TokenConfig is loaded once at startup. Changing Secret invalidates every
// outstanding session token.
type TokenConfig struct {
	Secret     []byte
	SessionTTL time.Duration
	Issuer     string
}

// TokenService signs and verifies session tokens and mints recovery tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	clock  abtime.AbstractTime
}

// NewTokenService builds a TokenService. A nil clock means wall-clock time;
// a zero SessionTTL means DefaultSessionTTL.
func NewTokenService(cfg TokenConfig, clock abtime.AbstractTime) *TokenService {
	if clock == nil {
		clock = abtime.NewRealTime()
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{
		secret: cfg.Secret,
		ttl:    ttl,
		issuer: cfg.Issuer,
		clock:  clock,
	}
}

// IssueSessionToken signs c with an absolute expiry of now+SessionTTL.
func (s *TokenService) IssueSessionToken(c SessionClaims) (string, error) {
	now := s.clock.Now()

	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   c.UserID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// VerifySessionToken checks signature and expiry. Claims are returned only
// with TokenValid.
func (s *TokenService) VerifySessionToken(tokenString string) (*SessionClaims, VerifyResult) {
	if tokenString == "" {
		return nil, TokenMalformed
	}

	now := s.clock.Now()
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, TokenMalformed
	}

	return claims, TokenValid
}

func classify(err error) VerifyResult {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return TokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return TokenSignatureInvalid
	default:
		return TokenMalformed
	}
}

// IssueRecoveryToken returns a fresh 64-character hex bearer secret. It is
// unrelated to session tokens and is never signed or decoded, only looked up.
func (s *TokenService) IssueRecoveryToken() (string, error) {
	token, err := common.MakeRandHexString(RecoveryTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generating recovery token: %w", err)
	}
	return token, nil
}

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/adminaccess/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// HashParams is the Argon2id work factor.
type HashParams struct {
	Time      uint32 // iterations
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
	SaltLen   uint32
}

// DefaultHashParams follows the OWASP Argon2id baseline.
var DefaultHashParams = HashParams{
	Time:      3,
	MemoryKiB: 64 * 1024,
	Threads:   1,
	KeyLen:    32,
	SaltLen:   16,
}

// PasswordHasher hashes passwords into PHC strings:
//
//	$argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
//
// It is safe for concurrent use.
type PasswordHasher struct {
	params HashParams
}

// NewPasswordHasher returns a hasher using p. Zero fields fall back to
// DefaultHashParams.
func NewPasswordHasher(p HashParams) *PasswordHasher {
	if p.Time == 0 {
		p.Time = DefaultHashParams.Time
	}
	if p.MemoryKiB == 0 {
		p.MemoryKiB = DefaultHashParams.MemoryKiB
	}
	if p.Threads == 0 {
		p.Threads = DefaultHashParams.Threads
	}
	if p.KeyLen == 0 {
		p.KeyLen = DefaultHashParams.KeyLen
	}
	if p.SaltLen == 0 {
		p.SaltLen = DefaultHashParams.SaltLen
	}
	return &PasswordHasher{params: p}
}

// Hash derives a salted Argon2id hash of plaintext. Empty input yields
// common.ErrInvalidInput.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: empty password", common.ErrInvalidInput)
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Time, h.params.MemoryKiB, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches hashed. A malformed or unknown
// hash is simply a mismatch.
func (h *PasswordHasher) Verify(plaintext, hashed string) bool {
	if plaintext == "" || hashed == "" {
		return false
	}

	if isBcrypt(hashed) {
		return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
	}

	p, salt, key, err := decodePHC(hashed)
	if err != nil {
		return false
	}

	candidate := argon2.IDKey([]byte(plaintext), salt, p.Time, p.MemoryKiB, p.Threads, uint32(len(key))) //nolint:gosec // key length comes from our own encoding
	return subtle.ConstantTimeCompare(key, candidate) == 1
}

// NeedsRehash reports whether hashed was produced by bcrypt or under a
// different work factor than the hasher's current one.
func (h *PasswordHasher) NeedsRehash(hashed string) bool {
	if isBcrypt(hashed) {
		return true
	}
	p, _, key, err := decodePHC(hashed)
	if err != nil {
		return true
	}
	return p.Time != h.params.Time ||
		p.MemoryKiB != h.params.MemoryKiB ||
		p.Threads != h.params.Threads ||
		uint32(len(key)) != h.params.KeyLen //nolint:gosec // see Verify
}

func isBcrypt(hashed string) bool {
	return strings.HasPrefix(hashed, "$2a$") ||
		strings.HasPrefix(hashed, "$2b$") ||
		strings.HasPrefix(hashed, "$2y$")
}

func decodePHC(encoded string) (p HashParams, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return p, nil, nil, fmt.Errorf("invalid PHC hash format")
	}
	if parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, fmt.Errorf("parsing parameters: %w", err)
	}
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		return p, nil, nil, fmt.Errorf("zero argon2 parameter")
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return p, nil, nil, fmt.Errorf("decoding salt: %w", err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return p, nil, nil, fmt.Errorf("decoding hash: %w", err)
	}
	if len(key) == 0 {
		return p, nil, nil, fmt.Errorf("empty hash")
	}

	p.SaltLen = uint32(len(salt)) //nolint:gosec // bounded by the encoded string
	p.KeyLen = uint32(len(key))   //nolint:gosec // bounded by the encoded string
	return p, salt, key, nil
}

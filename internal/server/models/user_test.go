package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_ResetTokenPairStaysConsistent(t *testing.T) {
	u := &User{Email: "a@x.com"}
	assert.False(t, u.HasPendingRecovery())

	exp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	u.SetResetToken("abc", exp)
	require.True(t, u.HasPendingRecovery())
	assert.Equal(t, "abc", *u.ResetToken)
	assert.Equal(t, exp, *u.ResetTokenExpiresAt)

	u.ClearResetToken()
	assert.Nil(t, u.ResetToken)
	assert.Nil(t, u.ResetTokenExpiresAt)
}

func TestUser_RecoveryValidAt(t *testing.T) {
	exp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	u := &User{}
	assert.False(t, u.RecoveryValidAt(exp.Add(-time.Hour)))

	u.SetResetToken("abc", exp)
	assert.True(t, u.RecoveryValidAt(exp.Add(-time.Second)))
	assert.False(t, u.RecoveryValidAt(exp))
	assert.False(t, u.RecoveryValidAt(exp.Add(time.Second)))
}

func TestUser_RoleName(t *testing.T) {
	u := &User{}
	assert.Equal(t, "sin_rol", u.RoleName("sin_rol"))

	u.Role = &Role{ID: RoleIDRestaurantAdmin, Name: "restaurant_admin"}
	assert.Equal(t, "restaurant_admin", u.RoleName("sin_rol"))
}

func TestUser_JSONHidesSecrets(t *testing.T) {
	u := &User{ID: "1", Email: "a@x.com", PasswordHash: "$argon2id$...", DisplayName: "Name"}
	u.SetResetToken("deadbeef", time.Now())

	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "argon2id")
	assert.NotContains(t, string(b), "deadbeef")
	assert.Contains(t, string(b), `"email":"a@x.com"`)
}

func TestUser_IsPersisted(t *testing.T) {
	assert.False(t, (&User{}).IsPersisted())
	assert.True(t, (&User{ID: "7"}).IsPersisted())
}

package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/adminaccess/internal/common"
	"github.com/dmitrijs2005/adminaccess/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory. It backs the "memory"
// storage mode and service tests. Returned users are copies.
type MemoryRepository struct {
	mu        sync.RWMutex
	users     map[string]*models.User // by id
	byEmail   map[string]string       // lower(email) -> id
	roles     map[int64]models.Role
	userRoles map[string]int64
	now       func() time.Time
}

// NewMemoryRepository returns an empty store knowing the given roles.
func NewMemoryRepository(roles ...models.Role) *MemoryRepository {
	m := &MemoryRepository{
		users:     map[string]*models.User{},
		byEmail:   map[string]string{},
		roles:     map[int64]models.Role{},
		userRoles: map[string]int64{},
		now:       time.Now,
	}
	for _, r := range roles {
		m.roles[r.ID] = r
	}
	return m
}

// SeedRoles mirrors the roles inserted by the schema migration.
func SeedRoles() []models.Role {
	return []models.Role{
		{ID: models.RoleIDSystemAdmin, Name: "system_admin", Permissions: "users.manage, roles.manage, orders.read, orders.write, menu.edit"},
		{ID: models.RoleIDRestaurantAdmin, Name: "restaurant_admin", Permissions: "orders.read, orders.write, menu.edit"},
		{ID: models.RoleIDStaff, Name: "staff", Permissions: "orders.read"},
	}
}

func (m *MemoryRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return m.copyOf(id), nil
}

func (m *MemoryRepository) FindByResetToken(_ context.Context, token string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, u := range m.users {
		if u.ResetToken != nil && *u.ResetToken == token {
			return m.copyOf(id), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *MemoryRepository) Save(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(user.Email)

	if !user.IsPersisted() {
		if _, taken := m.byEmail[key]; taken {
			return common.ErrDuplicateEmail
		}
		user.ID = uuid.NewString()
		user.CreatedAt = m.now().UTC()
		m.store(user)
		m.byEmail[key] = user.ID
		return nil
	}

	old, ok := m.users[user.ID]
	if !ok {
		return common.ErrorNotFound
	}
	oldKey := strings.ToLower(old.Email)
	if key != oldKey {
		if _, taken := m.byEmail[key]; taken {
			return common.ErrDuplicateEmail
		}
		delete(m.byEmail, oldKey)
		m.byEmail[key] = user.ID
	}
	created := old.CreatedAt
	m.store(user)
	m.users[user.ID].CreatedAt = created
	return nil
}

func (m *MemoryRepository) StoreResetToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.SetResetToken(token, expiresAt)
	return nil
}

func (m *MemoryRepository) ConsumeResetToken(_ context.Context, token, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ResetToken == nil || *u.ResetToken != token {
			continue
		}
		if passwordHash != "" {
			u.PasswordHash = passwordHash
		}
		u.ClearResetToken()
		return nil
	}
	return common.ErrorNotFound
}

func (m *MemoryRepository) AssignRole(_ context.Context, userID string, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return common.ErrorNotFound
	}
	if _, ok := m.roles[roleID]; !ok {
		return common.ErrorNotFound
	}
	if _, assigned := m.userRoles[userID]; !assigned {
		m.userRoles[userID] = roleID
	}
	return nil
}

func (m *MemoryRepository) FindIDByEmail(_ context.Context, email string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return "", common.ErrorNotFound
	}
	return id, nil
}

// store keeps a private copy of u without its role; roles are joined on read.
func (m *MemoryRepository) store(u *models.User) {
	c := *u
	c.Role = nil
	c.ClearResetToken()
	if u.HasPendingRecovery() {
		c.SetResetToken(*u.ResetToken, *u.ResetTokenExpiresAt)
	}
	m.users[u.ID] = &c
}

func (m *MemoryRepository) copyOf(id string) *models.User {
	c := *m.users[id]
	if c.HasPendingRecovery() {
		c.SetResetToken(*c.ResetToken, *c.ResetTokenExpiresAt)
	}
	if roleID, ok := m.userRoles[id]; ok {
		role := m.roles[roleID]
		c.Role = &role
	}
	return &c
}

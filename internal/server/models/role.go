package models

// Role groups permissions. Roles are seeded by migration and shared by any
// number of users.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// Permissions is a comma-delimited list, e.g. "orders.read, orders.write".
	Permissions string `json:"permissions"`
}

// Seeded role identifiers.
const (
	RoleIDSystemAdmin     int64 = 1
	RoleIDRestaurantAdmin int64 = 2
	RoleIDStaff           int64 = 3
)

package auth

import (
	"strings"

	"github.com/dmitrijs2005/adminaccess/internal/server/models"
)

// RoleEvaluator decides whether a role grants a permission. A role's own
// name counts as a permission, alongside its explicit comma-separated list.
type RoleEvaluator struct{}

// NewRoleEvaluator returns a RoleEvaluator.
func NewRoleEvaluator() *RoleEvaluator {
	return &RoleEvaluator{}
}

// Evaluate is deterministic and case-insensitive. No role, or an empty
// permission, never matches.
func (RoleEvaluator) Evaluate(role *models.Role, permission string) bool {
	if role == nil {
		return false
	}

	want := strings.ToLower(strings.TrimSpace(permission))
	if want == "" {
		return false
	}

	if strings.ToLower(role.Name) == want {
		return true
	}

	for _, p := range strings.Split(role.Permissions, ",") {
		if strings.ToLower(strings.TrimSpace(p)) == want {
			return true
		}
	}
	return false
}

// Permissions returns the role's effective permission set, name first,
// lower-cased and without blanks or duplicates.
func (RoleEvaluator) Permissions(role *models.Role) []string {
	if role == nil {
		return nil
	}

	seen := map[string]struct{}{}
	var out []string
	add := func(p string) {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	add(role.Name)
	for _, p := range strings.Split(role.Permissions, ",") {
		add(p)
	}
	return out
}

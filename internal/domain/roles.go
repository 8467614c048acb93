// Package domain defines shared domain constants, types and errors.
package domain

import (
	"fmt"
	"strings"
)

// Role is the access level tag stored on a user profile.
type Role string

const (
	// RoleUser represents a standard member with no elevated privileges.
	RoleUser Role = "user"
	// RoleAdmin represents a member allowed to manage the community.
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the persisted values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ParseRole normalizes raw input into a Role. An empty value yields RoleUser.
func ParseRole(raw string) (Role, error) {
	value := Role(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return RoleUser, nil
	}
	if !value.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, raw)
	}
	return value, nil
}

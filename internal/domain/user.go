package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleOwner      Role = "OWNER"
	RoleMechanic   Role = "MECHANIC"
	RoleInsurer    Role = "INSURER"
	RoleAdmin      Role = "ADMIN"
	RoleMLEngineer Role = "ML_ENGINEER"
)

// ParseRole validates a role string against the closed enumeration.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOwner, RoleMechanic, RoleInsurer, RoleAdmin, RoleMLEngineer:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether the role belongs to the enumeration.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// User is the directory record for an account. Email uniqueness
// (case-insensitive) is enforced by the directory, not by callers.
type User struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Role          Role
	Image         *string
	EmailVerified *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

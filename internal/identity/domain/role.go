package domain

import (
	"errors"
	"strings"
)

// Role is an authorization tier.
type Role string

const (
	RoleMember Role = "member"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

var ErrInvalidRole = errors.New("role must be member, staff, or admin")

// AllRoles lists roles from least to most privileged.
var AllRoles = []Role{RoleMember, RoleStaff, RoleAdmin}

// ParseRole parses a case-insensitive role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleMember, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

package domain

import (
	"strings"

	dErrors "watchdesk/pkg/domain-errors"
)

// Role is the closed set of staff roles.
// Invariant: the value is one of RoleOfficer or RoleManager.
//
// Usage: construct via ParseRole at trust boundaries (token claims, request
// bodies, database rows); direct casting bypasses validation.
type Role string

const (
	RoleOfficer Role = "officer"
	RoleManager Role = "manager"
)

var validRoles = map[Role]bool{
	RoleOfficer: true,
	RoleManager: true,
}

// ParseRole constructs a Role from external input, case-insensitively.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

func (r Role) String() string {
	return string(r)
}

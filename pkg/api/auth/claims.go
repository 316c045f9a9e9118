// Package auth provides JWT authorization for the realmd control API.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the role allowed to run enrollment operations. Read-only
// endpoints accept any valid token.
const RoleAdmin = "admin"

// Claims represents JWT claims for realmd authorization.
//
// The Subject carries the invoker name that is attached to every
// diagnostic line produced while serving the request.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the caller's role ("admin" or "observer").
	Role string `json:"role"`
}

// IsAdmin returns true if the caller may change machine enrollment.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Invoker returns the caller identity recorded in diagnostics.
func (c *Claims) Invoker() string {
	return c.Subject
}

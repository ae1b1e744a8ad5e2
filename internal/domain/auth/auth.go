// Package auth holds caller identity, roles and the authorization guard.
package auth

import (
	"context"
	"strings"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// Role is the coarse permission level of a user.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "CUSTOMER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

func (r Role) String() string { return string(r) }

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", apperr.Invalid("role", "unknown role "+s)
	}
	return r, nil
}

// Principal is an authenticated caller.
type Principal struct {
	UserID int64
	Email  string
	Role   Role
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

package auth

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/apperr"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		acting   Role
		required Role
		wantErr  bool
	}{
		{"customer as customer", RoleCustomer, RoleCustomer, false},
		{"admin as admin", RoleAdmin, RoleAdmin, false},
		{"admin as customer", RoleAdmin, RoleCustomer, true},
		{"customer as admin", RoleCustomer, RoleAdmin, true},
		{"empty role", "", RoleCustomer, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireRole(tt.acting, tt.required)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperr.ErrForbidden)
		})
	}
}

func TestRequireAnyRole(t *testing.T) {
	require.NoError(t, RequireAnyRole(RoleAdmin, RoleCustomer, RoleAdmin))
	require.NoError(t, RequireAnyRole(RoleCustomer, RoleCustomer))
	require.ErrorIs(t, RequireAnyRole(RoleCustomer, RoleAdmin), apperr.ErrForbidden)
	require.ErrorIs(t, RequireAnyRole(RoleCustomer), apperr.ErrForbidden)
}

func TestRequireSelfOrAdmin(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		acting  int64
		target  int64
		allowed bool
	}{
		{"customer self", RoleCustomer, 7, 7, true},
		{"customer other", RoleCustomer, 7, 8, false},
		{"admin other", RoleAdmin, 1, 8, true},
		{"admin self", RoleAdmin, 1, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireSelfOrAdmin(tt.role, tt.acting, tt.target)
			if tt.allowed {
				require.NoError(t, err)
				return
			}
			var fe *apperr.ForbiddenError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, string(tt.role), fe.Role)
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("root")
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Equal(t, "role", apperr.Field(err))
}

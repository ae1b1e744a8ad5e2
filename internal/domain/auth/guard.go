package auth

import (
	"github.com/xenking/storefront/internal/domain/apperr"
)

// RequireRole denies unless acting equals required.
func RequireRole(acting, required Role) error {
	if acting != required {
		return &apperr.ForbiddenError{Role: string(acting)}
	}
	return nil
}

// RequireAnyRole denies unless acting is one of candidates.
func RequireAnyRole(acting Role, candidates ...Role) error {
	for _, c := range candidates {
		if acting == c {
			return nil
		}
	}
	return &apperr.ForbiddenError{Role: string(acting)}
}

// RequireSelfOrAdmin allows admins and callers acting on their own user id.
func RequireSelfOrAdmin(acting Role, actingUserID, targetUserID int64) error {
	if acting == RoleAdmin || actingUserID == targetUserID {
		return nil
	}
	return &apperr.ForbiddenError{Role: string(acting), Reason: "access another user's resources"}
}

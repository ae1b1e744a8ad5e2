// Package user manages customer and administrator accounts.
package user

import (
	"context"
	"time"

	"github.com/xenking/storefront/internal/domain/auth"
)

// User is a registered account. PasswordHash is a bcrypt hash.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         auth.Role
	CreatedAt    time.Time
}

// Principal returns the identity the user acts as.
func (u *User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// Repository persists users. Emails are unique case-insensitively; Create
// fails with an InvalidArgument error on the "email" field for duplicates.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

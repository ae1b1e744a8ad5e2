package memory

import (
	"context"
	"strings"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/user"
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository.
type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	return r.s.do(nil, func(d *data) error {
		for _, other := range d.users {
			if strings.EqualFold(other.Email, u.Email) {
				return apperr.Invalid("email", "email already registered")
			}
		}
		u.ID = d.nextID()
		u.CreatedAt = r.s.now()
		d.users[u.ID] = *u
		return nil
	})
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*user.User, error) {
	var out user.User
	err := r.s.do(nil, func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return apperr.NotFound("user", id)
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*user.User, error) {
	var out user.User
	err := r.s.do(nil, func(d *data) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, email) {
				out = u
				return nil
			}
		}
		return apperr.NotFoundBy("user", email)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

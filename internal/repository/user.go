package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/user"
)

const (
	userColumns = `id, name, email, password_hash, role, created_at`

	createUserSQL = `INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	getUserByIDSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	db DBTX
}

// NewUserRepository returns a UserRepository using db.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	rows, err := r.db.Query(ctx, createUserSQL, u.Name, u.Email, u.PasswordHash, string(u.Role))
	if err != nil {
		return errors.Wrap(err, "create user")
	}
	created, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return apperr.Invalid("email", "email already registered")
		}
		return errors.Wrap(err, "create user")
	}
	*u = created
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	rows, err := r.db.Query(ctx, getUserByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get user %d", id)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("user", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get user %d", id)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	rows, err := r.db.Query(ctx, getUserByEmailSQL, email)
	if err != nil {
		return nil, errors.Wrap(err, "get user by email")
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundBy("user", email)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get user by email")
	}
	return &u, nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u    user.User
		role string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	u.Role = auth.Role(role)
	return u, err
}

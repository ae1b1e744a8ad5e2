package user

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@(.+)$`)

// ErrInvalidCredentials is returned by Login for unknown emails and wrong passwords alike.
var ErrInvalidCredentials = errors.Wrap(apperr.ErrUnauthorized, "invalid credentials")

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(p auth.Principal) (string, time.Time, error)
}

// RegisterInput holds the fields of a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func (in RegisterInput) normalize() (RegisterInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case in.Name == "":
		return in, apperr.Invalid("name", "must not be empty")
	case !emailPattern.MatchString(in.Email):
		return in, apperr.Invalid("email", "malformed address")
	case len(in.Password) < minPasswordLength:
		return in, apperr.Invalid("password", "must be at least 6 characters")
	case len(in.Password) > 72:
		return in, apperr.Invalid("password", "must be at most 72 bytes")
	}
	return in, nil
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

// Service implements account registration, login and lookup.
type Service struct {
	repo       Repository
	tokens     TokenIssuer
	bcryptCost int
}

// NewService creates a user Service. A zero cost selects bcrypt.DefaultCost.
func NewService(repo Repository, tokens TokenIssuer, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, tokens: tokens, bcryptCost: bcryptCost}
}

// Register creates a CUSTOMER account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	return s.create(ctx, in, auth.RoleCustomer)
}

// RegisterAdmin creates an ADMIN account. It is only reachable from operator
// tooling, never from the public API.
func (s *Service) RegisterAdmin(ctx context.Context, in RegisterInput) (*User, error) {
	return s.create(ctx, in, auth.RoleAdmin)
}

func (s *Service) create(ctx context.Context, in RegisterInput, role auth.Role) (*User, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Invalid("email", "email already registered")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, errors.Wrap(err, "lookup user by email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	u := &User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup user by email")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(u.Principal())
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// Get returns the user with targetID to that user or to an admin.
func (s *Service) Get(ctx context.Context, targetID, actingID int64, role auth.Role) (*User, error) {
	if err := auth.RequireSelfOrAdmin(role, actingID, targetID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, targetID)
}

// Profile returns the acting user's own account.
func (s *Service) Profile(ctx context.Context, actingID int64) (*User, error) {
	return s.repo.GetByID(ctx, actingID)
}

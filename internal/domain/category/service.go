package category

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
)

// Input holds the mutable fields of a category.
type Input struct {
	Name        string
	Description string
}

func (in Input) normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, apperr.Invalid("name", "must not be empty")
	}
	return in, nil
}

// Service implements category management. Mutations require ADMIN.
type Service struct {
	repo Repository
}

// NewService creates a category Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create adds a new category with a unique name.
func (s *Service) Create(ctx context.Context, role auth.Role, in Input) (*Category, error) {
	if err := auth.RequireRole(role, auth.RoleAdmin); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, in.Name, 0); err != nil {
		return nil, err
	}

	c := &Category{Name: in.Name, Description: in.Description}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update replaces name and description of an existing category.
func (s *Service) Update(ctx context.Context, role auth.Role, id int64, in Input) (*Category, error) {
	if err := auth.RequireRole(role, auth.RoleAdmin); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(c.Name, in.Name) {
		if err := s.ensureNameFree(ctx, in.Name, id); err != nil {
			return nil, err
		}
	}

	c.Name = in.Name
	c.Description = in.Description
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a category. Categories still referenced by products cannot be deleted.
func (s *Service) Delete(ctx context.Context, role auth.Role, id int64) error {
	if err := auth.RequireRole(role, auth.RoleAdmin); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Get returns a category by id.
func (s *Service) Get(ctx context.Context, id int64) (*Category, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all categories ordered by id.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) ensureNameFree(ctx context.Context, name string, self int64) error {
	existing, err := s.repo.GetByName(ctx, name)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	case err != nil:
		return errors.Wrap(err, "lookup category by name")
	case existing.ID != self:
		return apperr.Invalid("name", "category with name "+name+" already exists")
	}
	return nil
}

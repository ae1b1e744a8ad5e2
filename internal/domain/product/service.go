package product

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/category"
)

// Input holds the mutable fields of a product.
type Input struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  int64
}

func (in Input) normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Name == "":
		return in, apperr.Invalid("name", "must not be empty")
	case in.Stock < 0:
		return in, apperr.Invalid("stock", "must not be negative")
	case in.CategoryID <= 0:
		return in, apperr.Invalid("categoryId", "is required")
	}
	return in, ValidatePrice(in.Price)
}

// CategoryLookup resolves category references.
type CategoryLookup interface {
	GetByID(ctx context.Context, id int64) (*category.Category, error)
}

// Service implements catalog management. Mutations require ADMIN, reads are public.
type Service struct {
	repo       Repository
	categories CategoryLookup
}

// NewService creates a product Service.
func NewService(repo Repository, categories CategoryLookup) *Service {
	return &Service{repo: repo, categories: categories}
}

// Create adds a product to an existing category.
func (s *Service) Create(ctx context.Context, role auth.Role, in Input) (*Product, error) {
	if err := auth.RequireRole(role, auth.RoleAdmin); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	if _, err := s.categories.GetByID(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	p := &Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces all mutable fields of a product. Orders already placed keep
// their own price snapshot.
func (s *Service) Update(ctx context.Context, role auth.Role, id int64, in Input) (*Product, error) {
	if err := auth.RequireRole(role, auth.RoleAdmin); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CategoryID != in.CategoryID {
		if _, err := s.categories.GetByID(ctx, in.CategoryID); err != nil {
			return nil, err
		}
	}

	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Stock = in.Stock
	p.CategoryID = in.CategoryID
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a product that no order references.
func (s *Service) Delete(ctx context.Context, role auth.Role, id int64) error {
	if err := auth.RequireRole(role, auth.RoleAdmin); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns the whole catalog ordered by id.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// ListByCategory returns the products of an existing category.
func (s *Service) ListByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.repo.ListByCategory(ctx, categoryID)
}

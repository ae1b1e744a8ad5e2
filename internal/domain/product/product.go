// Package product owns the product catalog and the stock ledger contract.
package product

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// Product is a catalog item with an authoritative price and stock level.
type Product struct {
	ID           int64
	Name         string
	Description  string
	Price        decimal.Decimal
	Stock        int
	CategoryID   int64
	CategoryName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MaxPrice is the largest price a product can carry, matching NUMERIC(12,2).
var MaxPrice = decimal.RequireFromString("9999999999.99")

// Exponent bounds checked before any arithmetic on a price: rescaling a
// decimal costs time proportional to its exponent.
const (
	maxPriceExponent = 10
	minPriceExponent = -18
)

// ValidatePrice checks that p is non-negative, at most MaxPrice and has at
// most 2 decimal places.
func ValidatePrice(p decimal.Decimal) error {
	switch {
	case p.IsNegative():
		return apperr.Invalid("price", "must not be negative")
	case p.Exponent() > maxPriceExponent:
		return apperr.Invalid("price", "must not exceed "+MaxPrice.StringFixed(2))
	case p.Exponent() < minPriceExponent:
		return apperr.Invalid("price", "must have at most 2 decimal places")
	case p.GreaterThan(MaxPrice):
		return apperr.Invalid("price", "must not exceed "+MaxPrice.StringFixed(2))
	case !p.Equal(p.Round(2)):
		return apperr.Invalid("price", "must have at most 2 decimal places")
	}
	return nil
}

// Repository persists catalog entries. Create and Update fill ID, timestamps
// and CategoryName.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]Product, error)
}

// Ledger is the stock authority consumed by order placement.
//
// DecrementStock must be atomic per product: it fails with an
// *InsufficientStockError and leaves the row untouched when the current stock
// is lower than quantity.
type Ledger interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
	DecrementStock(ctx context.Context, id int64, quantity int) error
}

// InsufficientStockError reports that a product cannot cover a requested quantity.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("insufficient stock for product: %s (requested %d, available %d)", e.Name, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for product %d (requested %d)", e.ProductID, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == apperr.ErrInsufficientStock }

// ValidateDecrement checks the DecrementStock precondition.
func ValidateDecrement(quantity int) error {
	if quantity <= 0 {
		return apperr.Invalid("quantity", "must be greater than 0")
	}
	return nil
}

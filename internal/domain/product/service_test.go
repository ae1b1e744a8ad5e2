package product_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/category"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/repository/memory"
)

func newService(t *testing.T) (*product.Service, *memory.Store, int64) {
	t.Helper()
	store := memory.New()
	c := &category.Category{Name: "Karts"}
	require.NoError(t, store.Categories().Create(context.Background(), c))
	return product.NewService(store.Products(), store.Categories()), store, c.ID
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, _, catID := newService(t)

	p, err := svc.Create(ctx, auth.RoleAdmin, product.Input{
		Name:       "Racer",
		Price:      decimal.RequireFromString("12.50"),
		Stock:      4,
		CategoryID: catID,
	})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "Karts", p.CategoryName)

	free, err := svc.Create(ctx, auth.RoleAdmin, product.Input{Name: "Sticker", Price: decimal.Zero, CategoryID: catID})
	require.NoError(t, err)
	assert.True(t, free.Price.IsZero())

	tests := []struct {
		name    string
		role    auth.Role
		in      product.Input
		wantErr error
		field   string
	}{
		{"customer", auth.RoleCustomer, product.Input{Name: "x", Price: decimal.NewFromInt(1), CategoryID: catID}, apperr.ErrForbidden, ""},
		{"empty name", auth.RoleAdmin, product.Input{Name: " ", Price: decimal.NewFromInt(1), CategoryID: catID}, apperr.ErrInvalidArgument, "name"},
		{"negative price", auth.RoleAdmin, product.Input{Name: "x", Price: decimal.NewFromInt(-1), CategoryID: catID}, apperr.ErrInvalidArgument, "price"},
		{"fractional cents", auth.RoleAdmin, product.Input{Name: "x", Price: decimal.RequireFromString("1.005"), CategoryID: catID}, apperr.ErrInvalidArgument, "price"},
		{"above max price", auth.RoleAdmin, product.Input{Name: "x", Price: decimal.RequireFromString("10000000000"), CategoryID: catID}, apperr.ErrInvalidArgument, "price"},
		{"huge exponent", auth.RoleAdmin, product.Input{Name: "x", Price: decimal.RequireFromString("1e400000000"), CategoryID: catID}, apperr.ErrInvalidArgument, "price"},
		{"negative stock", auth.RoleAdmin, product.Input{Name: "x", Price: decimal.NewFromInt(1), Stock: -1, CategoryID: catID}, apperr.ErrInvalidArgument, "stock"},
		{"missing category", auth.RoleAdmin, product.Input{Name: "x", Price: decimal.NewFromInt(1)}, apperr.ErrInvalidArgument, "categoryId"},
		{"unknown category", auth.RoleAdmin, product.Input{Name: "x", Price: decimal.NewFromInt(1), CategoryID: 404}, apperr.ErrNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.role, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.field, apperr.Field(err))
		})
	}
}

func TestValidatePrice(t *testing.T) {
	for _, tt := range []struct {
		price string
		ok    bool
	}{
		{"0", true},
		{"0.01", true},
		{"12.50", true},
		{"1.000", true},
		{"9999999999.99", true},
		{"1e10", false},
		{"10000000000.00", false},
		{"1e400000000", false},
		{"0e400000000", false},
		{"1e-400000000", false},
		{"-0.01", false},
		{"0.001", false},
	} {
		t.Run(tt.price, func(t *testing.T) {
			done := make(chan error, 1)
			go func() { done <- product.ValidatePrice(decimal.RequireFromString(tt.price)) }()

			select {
			case err := <-done:
				if tt.ok {
					require.NoError(t, err)
					return
				}
				require.ErrorIs(t, err, apperr.ErrInvalidArgument)
				assert.Equal(t, "price", apperr.Field(err))
			case <-time.After(time.Second):
				t.Fatal("validation did not return in time")
			}
		})
	}
}

func TestUpdateAndList(t *testing.T) {
	ctx := context.Background()
	svc, store, catID := newService(t)
	other := &category.Category{Name: "Parts"}
	require.NoError(t, store.Categories().Create(ctx, other))

	p, err := svc.Create(ctx, auth.RoleAdmin, product.Input{Name: "Racer", Price: decimal.NewFromInt(10), Stock: 1, CategoryID: catID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, auth.RoleAdmin, product.Input{Name: "Wheel", Price: decimal.NewFromInt(3), Stock: 8, CategoryID: other.ID})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, auth.RoleAdmin, p.ID, product.Input{Name: "Racer X", Price: decimal.NewFromInt(12), Stock: 9, CategoryID: other.ID})
	require.NoError(t, err)
	assert.Equal(t, "Racer X", updated.Name)
	assert.Equal(t, "Parts", updated.CategoryName)
	assert.Equal(t, 9, updated.Stock)

	_, err = svc.Update(ctx, auth.RoleAdmin, 999, product.Input{Name: "n", Price: decimal.NewFromInt(1), CategoryID: catID})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inParts, err := svc.ListByCategory(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, inParts, 2)

	inKarts, err := svc.ListByCategory(ctx, catID)
	require.NoError(t, err)
	assert.Empty(t, inKarts)

	_, err = svc.ListByCategory(ctx, 404)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, catID := newService(t)
	p, err := svc.Create(ctx, auth.RoleAdmin, product.Input{Name: "Racer", Price: decimal.NewFromInt(10), CategoryID: catID})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, auth.RoleCustomer, p.ID), apperr.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, auth.RoleAdmin, p.ID))

	_, err = svc.Get(ctx, p.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLedger_DecrementStock(t *testing.T) {
	ctx := context.Background()
	_, store, catID := newService(t)
	ledger := store.Products()
	p := &product.Product{Name: "Racer", Price: decimal.NewFromInt(10), Stock: 5, CategoryID: catID}
	require.NoError(t, ledger.Create(ctx, p))

	require.NoError(t, ledger.DecrementStock(ctx, p.ID, 5))

	err := ledger.DecrementStock(ctx, p.ID, 1)
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)

	require.ErrorIs(t, ledger.DecrementStock(ctx, p.ID, 0), apperr.ErrInvalidArgument)
	require.ErrorIs(t, ledger.DecrementStock(ctx, 999, 1), apperr.ErrNotFound)

	got, err := ledger.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/product"
)

const (
	productSelect = `SELECT p.id, p.name, p.description, p.price, p.stock, p.category_id, c.name, p.created_at, p.updated_at
		FROM products p JOIN categories c ON c.id = p.category_id`

	createProductSQL = `WITH p AS (
			INSERT INTO products (name, description, price, stock, category_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *
		)
		SELECT p.id, p.name, p.description, p.price, p.stock, p.category_id, c.name, p.created_at, p.updated_at
		FROM p JOIN categories c ON c.id = p.category_id`

	updateProductSQL = `WITH p AS (
			UPDATE products
			SET name = $2, description = $3, price = $4, stock = $5, category_id = $6, updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT p.id, p.name, p.description, p.price, p.stock, p.category_id, c.name, p.created_at, p.updated_at
		FROM p JOIN categories c ON c.id = p.category_id`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	getProductByIDSQL = productSelect + ` WHERE p.id = $1`

	listProductsSQL = productSelect + ` ORDER BY p.id`

	listProductsByCategorySQL = productSelect + ` WHERE p.category_id = $1 ORDER BY p.id`

	// decrementStockSQL is the atomic conditional decrement. The row lock taken
	// by UPDATE serializes concurrent decrements of the same product.
	decrementStockSQL = `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
		RETURNING stock`

	getStockSQL = `SELECT name, stock FROM products WHERE id = $1`
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ product.Ledger     = (*ProductRepository)(nil)
)

// ProductRepository implements product.Repository and product.Ledger backed
// by PostgreSQL.
type ProductRepository struct {
	db DBTX
}

// NewProductRepository returns a ProductRepository using db.
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	rows, err := r.db.Query(ctx, createProductSQL, p.Name, p.Description, p.Price, p.Stock, p.CategoryID)
	if err != nil {
		return errors.Wrap(err, "create product")
	}
	created, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		return mapProductWriteError(err, p, "create product")
	}
	*p = created
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	rows, err := r.db.Query(ctx, updateProductSQL, p.ID, p.Name, p.Description, p.Price, p.Stock, p.CategoryID)
	if err != nil {
		return errors.Wrapf(err, "update product %d", p.ID)
	}
	updated, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("product", p.ID)
	}
	if err != nil {
		return mapProductWriteError(err, p, "update product")
	}
	*p = updated
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return apperr.Conflict("product is referenced by existing orders")
		}
		return errors.Wrapf(err, "delete product %d", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("product", id)
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.db.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("product", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return &p, nil
}

// GetProduct implements product.Ledger.
func (r *ProductRepository) GetProduct(ctx context.Context, id int64) (*product.Product, error) {
	return r.GetByID(ctx, id)
}

// DecrementStock implements product.Ledger.
func (r *ProductRepository) DecrementStock(ctx context.Context, id int64, quantity int) error {
	if err := product.ValidateDecrement(quantity); err != nil {
		return err
	}

	var remaining int
	err := r.db.QueryRow(ctx, decrementStockSQL, id, quantity).Scan(&remaining)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrapf(err, "decrement stock of product %d", id)
	}

	var (
		name  string
		stock int
	)
	err = r.db.QueryRow(ctx, getStockSQL, id).Scan(&name, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("product", id)
	}
	if err != nil {
		return errors.Wrapf(err, "get stock of product %d", id)
	}
	return &product.InsufficientStockError{
		ProductID: id,
		Name:      name,
		Requested: quantity,
		Available: stock,
	}
}

func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (r *ProductRepository) ListByCategory(ctx context.Context, categoryID int64) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, listProductsByCategorySQL, categoryID)
	if err != nil {
		return nil, errors.Wrapf(err, "list products of category %d", categoryID)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.CategoryID, &p.CategoryName, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func mapProductWriteError(err error, p *product.Product, op string) error {
	switch pgCode(err) {
	case codeForeignKeyViolation:
		return apperr.NotFound("category", p.CategoryID)
	case codeCheckViolation:
		return apperr.Invalid("product", "violates catalog constraints")
	}
	return errors.Wrap(err, op)
}

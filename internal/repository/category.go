package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/category"
)

const (
	categoryColumns = `id, name, description, created_at, updated_at`

	createCategorySQL = `INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING ` + categoryColumns

	updateCategorySQL = `UPDATE categories SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + categoryColumns

	deleteCategorySQL = `DELETE FROM categories WHERE id = $1`

	getCategoryByIDSQL = `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	getCategoryByNameSQL = `SELECT ` + categoryColumns + ` FROM categories WHERE lower(name) = lower($1)`

	listCategoriesSQL = `SELECT ` + categoryColumns + ` FROM categories ORDER BY id`
)

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository implements category.Repository backed by PostgreSQL.
type CategoryRepository struct {
	db DBTX
}

// NewCategoryRepository returns a CategoryRepository using db.
func NewCategoryRepository(db DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	rows, err := r.db.Query(ctx, createCategorySQL, c.Name, c.Description)
	if err != nil {
		return errors.Wrap(err, "create category")
	}
	created, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		return mapCategoryWriteError(err, "create category")
	}
	*c = created
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *category.Category) error {
	rows, err := r.db.Query(ctx, updateCategorySQL, c.ID, c.Name, c.Description)
	if err != nil {
		return errors.Wrapf(err, "update category %d", c.ID)
	}
	updated, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("category", c.ID)
	}
	if err != nil {
		return mapCategoryWriteError(err, "update category")
	}
	*c = updated
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, deleteCategorySQL, id)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return apperr.Conflict("category is still referenced by products")
		}
		return errors.Wrapf(err, "delete category %d", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("category", id)
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	rows, err := r.db.Query(ctx, getCategoryByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get category %d", id)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("category", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get category %d", id)
	}
	return &c, nil
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*category.Category, error) {
	rows, err := r.db.Query(ctx, getCategoryByNameSQL, name)
	if err != nil {
		return nil, errors.Wrapf(err, "get category %q", name)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundBy("category", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get category %q", name)
	}
	return &c, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]category.Category, error) {
	rows, err := r.db.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return pgx.CollectRows(rows, scanCategory)
}

func scanCategory(row pgx.CollectableRow) (category.Category, error) {
	var c category.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func mapCategoryWriteError(err error, op string) error {
	if pgCode(err) == codeUniqueViolation {
		return apperr.Invalid("name", "category with this name already exists")
	}
	return errors.Wrap(err, op)
}

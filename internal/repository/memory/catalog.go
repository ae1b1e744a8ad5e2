package memory

import (
	"context"
	"strings"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/category"
	"github.com/xenking/storefront/internal/domain/product"
)

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository implements category.Repository.
type CategoryRepository struct {
	s *Store
}

func (r *CategoryRepository) Create(_ context.Context, c *category.Category) error {
	return r.s.do(nil, func(d *data) error {
		if nameTaken(d, c.Name, 0) {
			return apperr.Invalid("name", "category with this name already exists")
		}
		now := r.s.now()
		c.ID = d.nextID()
		c.CreatedAt, c.UpdatedAt = now, now
		d.categories[c.ID] = *c
		return nil
	})
}

func (r *CategoryRepository) Update(_ context.Context, c *category.Category) error {
	return r.s.do(nil, func(d *data) error {
		cur, ok := d.categories[c.ID]
		if !ok {
			return apperr.NotFound("category", c.ID)
		}
		if nameTaken(d, c.Name, c.ID) {
			return apperr.Invalid("name", "category with this name already exists")
		}
		cur.Name, cur.Description, cur.UpdatedAt = c.Name, c.Description, r.s.now()
		d.categories[c.ID] = cur
		for id, p := range d.products {
			if p.CategoryID == c.ID {
				p.CategoryName = cur.Name
				d.products[id] = p
			}
		}
		*c = cur
		return nil
	})
}

func (r *CategoryRepository) Delete(_ context.Context, id int64) error {
	return r.s.do(nil, func(d *data) error {
		if _, ok := d.categories[id]; !ok {
			return apperr.NotFound("category", id)
		}
		for _, p := range d.products {
			if p.CategoryID == id {
				return apperr.Conflict("category is still referenced by products")
			}
		}
		delete(d.categories, id)
		return nil
	})
}

func (r *CategoryRepository) GetByID(_ context.Context, id int64) (*category.Category, error) {
	var out category.Category
	err := r.s.do(nil, func(d *data) error {
		c, ok := d.categories[id]
		if !ok {
			return apperr.NotFound("category", id)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *CategoryRepository) GetByName(_ context.Context, name string) (*category.Category, error) {
	var out category.Category
	err := r.s.do(nil, func(d *data) error {
		for _, c := range d.categories {
			if strings.EqualFold(c.Name, name) {
				out = c
				return nil
			}
		}
		return apperr.NotFoundBy("category", name)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *CategoryRepository) List(_ context.Context) ([]category.Category, error) {
	var out []category.Category
	err := r.s.do(nil, func(d *data) error {
		out = sortedByID(d.categories, nil)
		return nil
	})
	return out, err
}

func nameTaken(d *data, name string, self int64) bool {
	for id, c := range d.categories {
		if id != self && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ product.Ledger     = (*ProductRepository)(nil)
)

// ProductRepository implements product.Repository and product.Ledger.
type ProductRepository struct {
	s  *Store
	tx *data
}

func (r *ProductRepository) Create(_ context.Context, p *product.Product) error {
	return r.s.do(r.tx, func(d *data) error {
		c, ok := d.categories[p.CategoryID]
		if !ok {
			return apperr.NotFound("category", p.CategoryID)
		}
		now := r.s.now()
		p.ID = d.nextID()
		p.CategoryName = c.Name
		p.CreatedAt, p.UpdatedAt = now, now
		d.products[p.ID] = *p
		return nil
	})
}

func (r *ProductRepository) Update(_ context.Context, p *product.Product) error {
	return r.s.do(r.tx, func(d *data) error {
		cur, ok := d.products[p.ID]
		if !ok {
			return apperr.NotFound("product", p.ID)
		}
		c, ok := d.categories[p.CategoryID]
		if !ok {
			return apperr.NotFound("category", p.CategoryID)
		}
		cur.Name, cur.Description = p.Name, p.Description
		cur.Price, cur.Stock = p.Price, p.Stock
		cur.CategoryID, cur.CategoryName = c.ID, c.Name
		cur.UpdatedAt = r.s.now()
		d.products[p.ID] = cur
		*p = cur
		return nil
	})
}

func (r *ProductRepository) Delete(_ context.Context, id int64) error {
	return r.s.do(r.tx, func(d *data) error {
		if _, ok := d.products[id]; !ok {
			return apperr.NotFound("product", id)
		}
		for _, o := range d.orders {
			for _, l := range o.Lines {
				if l.ProductID == id {
					return apperr.Conflict("product is referenced by existing orders")
				}
			}
		}
		delete(d.products, id)
		return nil
	})
}

func (r *ProductRepository) GetByID(_ context.Context, id int64) (*product.Product, error) {
	var out product.Product
	err := r.s.do(r.tx, func(d *data) error {
		p, ok := d.products[id]
		if !ok {
			return apperr.NotFound("product", id)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProduct implements product.Ledger.
func (r *ProductRepository) GetProduct(ctx context.Context, id int64) (*product.Product, error) {
	return r.GetByID(ctx, id)
}

// DecrementStock implements product.Ledger.
func (r *ProductRepository) DecrementStock(_ context.Context, id int64, quantity int) error {
	if err := product.ValidateDecrement(quantity); err != nil {
		return err
	}
	return r.s.do(r.tx, func(d *data) error {
		p, ok := d.products[id]
		if !ok {
			return apperr.NotFound("product", id)
		}
		if p.Stock < quantity {
			return &product.InsufficientStockError{
				ProductID: id,
				Name:      p.Name,
				Requested: quantity,
				Available: p.Stock,
			}
		}
		p.Stock -= quantity
		p.UpdatedAt = r.s.now()
		d.products[id] = p
		return nil
	})
}

func (r *ProductRepository) List(_ context.Context) ([]product.Product, error) {
	var out []product.Product
	err := r.s.do(r.tx, func(d *data) error {
		out = sortedByID(d.products, nil)
		return nil
	})
	return out, err
}

func (r *ProductRepository) ListByCategory(_ context.Context, categoryID int64) ([]product.Product, error) {
	var out []product.Product
	err := r.s.do(r.tx, func(d *data) error {
		out = sortedByID(d.products, func(p product.Product) bool { return p.CategoryID == categoryID })
		return nil
	})
	return out, err
}

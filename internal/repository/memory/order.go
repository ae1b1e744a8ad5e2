package memory

import (
	"context"
	"slices"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository.
type OrderRepository struct {
	s  *Store
	tx *data
}

func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	return r.s.do(r.tx, func(d *data) error {
		if _, ok := d.users[o.UserID]; !ok {
			return apperr.NotFound("user", o.UserID)
		}
		for _, l := range o.Lines {
			if _, ok := d.products[l.ProductID]; !ok {
				return apperr.NotFound("product", l.ProductID)
			}
		}
		now := r.s.now()
		o.ID = d.nextID()
		o.CreatedAt, o.UpdatedAt = now, now
		stored := *o
		stored.Lines = slices.Clone(o.Lines)
		d.orders[o.ID] = stored
		return nil
	})
}

func (r *OrderRepository) GetByID(_ context.Context, id int64) (*order.View, error) {
	var out order.View
	err := r.s.do(r.tx, func(d *data) error {
		o, ok := d.orders[id]
		if !ok {
			return apperr.NotFound("order", id)
		}
		out = view(d, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *OrderRepository) ListByUser(_ context.Context, userID int64) ([]order.View, error) {
	return r.list(func(o order.Order) bool { return o.UserID == userID })
}

func (r *OrderRepository) ListByStatus(_ context.Context, status order.Status) ([]order.View, error) {
	return r.list(func(o order.Order) bool { return o.Status == status })
}

func (r *OrderRepository) ListAll(_ context.Context) ([]order.View, error) {
	return r.list(nil)
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id int64, to order.Status, from []order.Status) error {
	return r.s.do(r.tx, func(d *data) error {
		o, ok := d.orders[id]
		if !ok {
			return apperr.NotFound("order", id)
		}
		if len(from) > 0 && !slices.Contains(from, o.Status) {
			return &order.TransitionError{From: o.Status, To: to}
		}
		o.Status = to
		o.UpdatedAt = r.s.now()
		d.orders[id] = o
		return nil
	})
}

func (r *OrderRepository) list(keep func(order.Order) bool) ([]order.View, error) {
	var out []order.View
	err := r.s.do(r.tx, func(d *data) error {
		orders := sortedByID(d.orders, keep)
		out = make([]order.View, len(orders))
		for i, o := range orders {
			out[i] = view(d, o)
		}
		return nil
	})
	return out, err
}

// view joins an order with the current product names and owner email.
func view(d *data, o order.Order) order.View {
	v := order.View{
		ID:        o.ID,
		UserID:    o.UserID,
		UserEmail: d.users[o.UserID].Email,
		Total:     o.Total,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		Lines:     make([]order.LineView, len(o.Lines)),
	}
	for i, l := range o.Lines {
		name := l.ProductName
		if p, ok := d.products[l.ProductID]; ok {
			name = p.Name
		}
		v.Lines[i] = order.LineView{
			ProductID:   l.ProductID,
			ProductName: name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.Total(),
		}
	}
	return v
}

package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (user_id, total, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	createOrderItemSQL = `INSERT INTO order_items (order_id, position, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	orderSelect = `SELECT o.id, o.user_id, u.email, o.total, o.status, o.created_at, o.updated_at
		FROM orders o JOIN users u ON u.id = o.user_id`

	getOrderByIDSQL = orderSelect + ` WHERE o.id = $1`

	listOrdersByUserSQL = orderSelect + ` WHERE o.user_id = $1 ORDER BY o.id`

	listOrdersByStatusSQL = orderSelect + ` WHERE o.status = $1 ORDER BY o.id`

	listOrdersSQL = orderSelect + ` ORDER BY o.id`

	listOrderItemsSQL = `SELECT oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price
		FROM order_items oi JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.position`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND (cardinality($3::text[]) = 0 OR status = ANY($3::text[]))`

	getOrderStatusSQL = `SELECT status FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository returns an OrderRepository using db.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order header and its lines. Callers needing all-or-nothing
// visibility run it through Transactor.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := r.db.QueryRow(ctx, createOrderSQL, o.UserID, o.Total, string(o.Status)).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		switch pgCode(err) {
		case codeForeignKeyViolation:
			return apperr.NotFound("user", o.UserID)
		case codeNumericOutOfRange:
			return apperr.Invalid("items", "order total is out of range")
		}
		return errors.Wrap(err, "insert order")
	}

	b := &pgx.Batch{}
	for i, l := range o.Lines {
		b.Queue(createOrderItemSQL, o.ID, i, l.ProductID, l.Quantity, l.UnitPrice)
	}
	if err := r.db.SendBatch(ctx, b).Close(); err != nil {
		return errors.Wrapf(err, "insert items of order %d", o.ID)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.View, error) {
	rows, err := r.db.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	v, err := pgx.CollectExactlyOneRow(rows, scanOrderView)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}

	views := []order.View{v}
	if err := r.attachLines(ctx, views); err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]order.View, error) {
	return r.list(ctx, listOrdersByUserSQL, userID)
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status order.Status) ([]order.View, error) {
	return r.list(ctx, listOrdersByStatusSQL, string(status))
}

func (r *OrderRepository) ListAll(ctx context.Context) ([]order.View, error) {
	return r.list(ctx, listOrdersSQL)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, to order.Status, from []order.Status) error {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	tag, err := r.db.Exec(ctx, updateOrderStatusSQL, id, string(to), allowed)
	if err != nil {
		return errors.Wrapf(err, "update status of order %d", id)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = r.db.QueryRow(ctx, getOrderStatusSQL, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("order", id)
	}
	if err != nil {
		return errors.Wrapf(err, "get status of order %d", id)
	}
	return &order.TransitionError{From: order.Status(current), To: to}
}

func (r *OrderRepository) list(ctx context.Context, sql string, args ...any) ([]order.View, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	views, err := pgx.CollectRows(rows, scanOrderView)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if err := r.attachLines(ctx, views); err != nil {
		return nil, err
	}
	return views, nil
}

// attachLines loads the lines of all views with one query.
func (r *OrderRepository) attachLines(ctx context.Context, views []order.View) error {
	if len(views) == 0 {
		return nil
	}
	ids := make([]int64, len(views))
	index := make(map[int64]int, len(views))
	for i, v := range views {
		ids[i] = v.ID
		index[v.ID] = i
	}

	rows, err := r.db.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "list order items")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			l       order.LineView
		)
		if err := rows.Scan(&orderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice); err != nil {
			return errors.Wrap(err, "scan order item")
		}
		l.LineTotal = order.Line{Quantity: l.Quantity, UnitPrice: l.UnitPrice}.Total()
		i := index[orderID]
		views[i].Lines = append(views[i].Lines, l)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate order items")
	}
	return nil
}

func scanOrderView(row pgx.CollectableRow) (order.View, error) {
	var (
		v      order.View
		status string
	)
	err := row.Scan(&v.ID, &v.UserID, &v.UserEmail, &v.Total, &status, &v.CreatedAt, &v.UpdatedAt)
	v.Status = order.Status(status)
	return v, err
}

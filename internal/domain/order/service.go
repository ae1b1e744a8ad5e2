// Package order implements order placement and the order lifecycle.
package order

import (
	"cmp"
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/product"
)

const instrumentationName = "github.com/xenking/storefront/internal/domain/order"

// transitions lists, per target status, the statuses it may be reached from
// when strict transitions are enabled.
var transitions = map[Status][]Status{
	StatusCreated:   {StatusCreated},
	StatusConfirmed: {StatusCreated, StatusConfirmed},
	StatusCancelled: {StatusCreated, StatusCancelled},
}

// Option configures a Service.
type Option func(*options)

type options struct {
	strict bool
	tp     trace.TracerProvider
	mp     metric.MeterProvider
}

// WithStrictTransitions rejects status changes outside the transition table
// with a *TransitionError. By default any status may replace any other.
func WithStrictTransitions(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithTracerProvider sets the tracer provider used for service spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithMeterProvider sets the meter provider used for order counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

// Service is the order workflow engine. Every operation takes the acting
// identity explicitly and authorizes it before touching the store.
type Service struct {
	ledger product.Ledger
	orders Repository
	tx     Transactor
	strict bool

	tracer   trace.Tracer
	placed   metric.Int64Counter
	rejected metric.Int64Counter
}

// NewService creates an order Service.
func NewService(ledger product.Ledger, orders Repository, tx Transactor, opts ...Option) (*Service, error) {
	o := options{
		tp: tracenoop.NewTracerProvider(),
		mp: metricnoop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	meter := o.mp.Meter(instrumentationName)
	placed, err := meter.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders successfully placed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create placed counter")
	}
	rejected, err := meter.Int64Counter("storefront.orders.rejected",
		metric.WithDescription("Order placements rejected, by reason"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create rejected counter")
	}

	return &Service{
		ledger:   ledger,
		orders:   orders,
		tx:       tx,
		strict:   o.strict,
		tracer:   o.tp.Tracer(instrumentationName),
		placed:   placed,
		rejected: rejected,
	}, nil
}

// PlaceOrder validates and prices items, then writes the order and decrements
// stock for every line in one transaction.
func (s *Service) PlaceOrder(ctx context.Context, userID int64, role auth.Role, items []Item) (_ *View, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.Int("order.items", len(items)),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
			s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(rerr))))
		}
		span.End()
	}()

	if err := auth.RequireRole(role, auth.RoleCustomer); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	lines := make([]Line, len(items))
	total := decimal.Zero
	for i, it := range items {
		if it.Quantity <= 0 {
			return nil, &InvalidQuantityError{Index: i, ProductID: it.ProductID, Quantity: it.Quantity}
		}
		p, err := s.ledger.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		// Fail fast; the authoritative check is the conditional decrement below.
		if p.Stock < it.Quantity {
			return nil, &LineStockError{Index: i, Err: &product.InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: it.Quantity,
				Available: p.Stock,
			}}
		}
		lines[i] = Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
		}
		total = total.Add(lines[i].Total())
	}

	if total.GreaterThan(MaxTotal) {
		return nil, apperr.Invalid("items", "order total exceeds "+MaxTotal.StringFixed(2))
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "place order")
	}

	o := &Order{
		UserID: userID,
		Lines:  lines,
		Total:  total,
		Status: StatusCreated,
	}
	var view *View
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st Stores) error {
		if err := st.Orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		for _, i := range decrementOrder(lines) {
			l := lines[i]
			if err := st.Ledger.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
				if errors.Is(err, apperr.ErrInsufficientStock) {
					err = &LineStockError{Index: i, Err: err}
				}
				return &ConsistencyFaultError{ProductID: l.ProductID, Err: err}
			}
		}
		v, err := st.Orders.GetByID(ctx, o.ID)
		if err != nil {
			return errors.Wrap(err, "reload order")
		}
		view = v
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConsistencyFault) {
			zctx.From(ctx).Warn("Stock decrement failed after order write, rolled back",
				zap.Int64("user_id", userID),
				zap.String("total", total.StringFixed(2)),
				zap.Error(err),
			)
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int64("order.id", view.ID))
	s.placed.Add(ctx, 1)
	zctx.From(ctx).Info("Order placed",
		zap.Int64("order_id", view.ID),
		zap.Int64("user_id", userID),
		zap.Int("lines", len(view.Lines)),
		zap.String("total", view.Total.StringFixed(2)),
	)
	return view, nil
}

// decrementOrder returns line indexes sorted by product id, so that
// concurrent placements lock product rows in the same order.
func decrementOrder(lines []Line) []int {
	idx := make([]int, len(lines))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(lines[a].ProductID, lines[b].ProductID)
	})
	return idx
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, apperr.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperr.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrInsufficientStock):
		return "insufficient_stock"
	}
	return "internal"
}

// UpdateStatus sets the status of an order. Requires ADMIN.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status Status, role auth.Role) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus",
		trace.WithAttributes(
			attribute.Int64("order.id", orderID),
			attribute.String("order.status", string(status)),
		),
	)
	defer span.End()

	if err := auth.RequireRole(role, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Invalid("status", "unknown order status "+string(status))
	}

	var from []Status
	if s.strict {
		from = transitions[status]
	}
	if err := s.orders.UpdateStatus(ctx, orderID, status, from); err != nil {
		return nil, err
	}
	zctx.From(ctx).Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("status", string(status)),
	)
	return s.orders.GetByID(ctx, orderID)
}

// Get returns an order to its owner or to an admin.
func (s *Service) Get(ctx context.Context, orderID, actingUserID int64, role auth.Role) (*View, error) {
	v, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireSelfOrAdmin(role, actingUserID, v.UserID); err != nil {
		return nil, err
	}
	return v, nil
}

// ListForUser returns the orders of targetUserID to that user or to an admin.
func (s *Service) ListForUser(ctx context.Context, targetUserID, actingUserID int64, role auth.Role) ([]View, error) {
	if err := auth.RequireSelfOrAdmin(role, actingUserID, targetUserID); err != nil {
		return nil, err
	}
	return s.orders.ListByUser(ctx, targetUserID)
}

// ListAll returns every order. Requires ADMIN.
func (s *Service) ListAll(ctx context.Context, role auth.Role) ([]View, error) {
	if err := auth.RequireRole(role, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.orders.ListAll(ctx)
}

// ListByStatus returns every order with the given status. Requires ADMIN.
func (s *Service) ListByStatus(ctx context.Context, status Status, role auth.Role) ([]View, error) {
	if err := auth.RequireRole(role, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Invalid("status", "unknown order status "+string(status))
	}
	return s.orders.ListByStatus(ctx, status)
}

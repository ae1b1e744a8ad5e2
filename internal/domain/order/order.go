package order

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/product"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Statuses lists all known statuses.
var Statuses = []Status{StatusCreated, StatusConfirmed, StatusCancelled}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// ParseStatus parses a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		names := make([]string, len(Statuses))
		for i, v := range Statuses {
			names[i] = string(v)
		}
		return "", apperr.Invalid("status", "unknown order status "+s+", want one of "+strings.Join(names, ", "))
	}
	return st, nil
}

// MaxTotal is the largest order total the store accepts, matching NUMERIC(24,2).
var MaxTotal = decimal.RequireFromString("9999999999999999999999.99")

// Item is a requested (product, quantity) pair.
type Item struct {
	ProductID int64
	Quantity  int
}

// Line is a persisted order line carrying the price captured at placement.
type Line struct {
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Total returns UnitPrice × Quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is the aggregate written at placement. Lines keep input order.
type Order struct {
	ID        int64
	UserID    int64
	Lines     []Line
	Total     decimal.Decimal
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// View is the read projection of an order.
type View struct {
	ID        int64
	UserID    int64
	UserEmail string
	Total     decimal.Decimal
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
	Lines     []LineView
}

// LineView is the read projection of an order line.
type LineView struct {
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// Repository persists orders.
//
// Create stores the order and all its lines as one unit and fills ID and
// timestamps. UpdateStatus sets the status only when the current status is one
// of from (any status when from is empty); it fails with NotFound for unknown
// orders and with *TransitionError when the current status is not allowed.
// Lists are ordered by ascending id.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*View, error)
	ListByUser(ctx context.Context, userID int64) ([]View, error)
	ListByStatus(ctx context.Context, status Status) ([]View, error)
	ListAll(ctx context.Context) ([]View, error)
	UpdateStatus(ctx context.Context, id int64, to Status, from []Status) error
}

// Stores are the repositories bound to one transaction.
type Stores struct {
	Orders Repository
	Ledger product.Ledger
}

// Transactor runs fn inside a single transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, st Stores) error) error
}

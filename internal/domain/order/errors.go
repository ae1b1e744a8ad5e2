package order

import (
	"fmt"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// ErrEmptyItems is returned when an order has no lines.
var ErrEmptyItems = &apperr.InvalidArgumentError{Field: "items", Reason: "order must contain at least one item"}

// InvalidQuantityError reports a non-positive quantity on a requested line.
type InvalidQuantityError struct {
	Index     int
	ProductID int64
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid %s: quantity must be greater than 0 for product %d", e.Field(), e.ProductID)
}

// Field identifies the offending request field.
func (e *InvalidQuantityError) Field() string {
	return fmt.Sprintf("items[%d].quantity", e.Index)
}

func (e *InvalidQuantityError) Is(target error) bool { return target == apperr.ErrInvalidArgument }

// LineStockError ties a stock shortfall to the request line that caused it.
type LineStockError struct {
	Index int
	Err   error
}

func (e *LineStockError) Error() string { return e.Err.Error() }

func (e *LineStockError) Unwrap() error { return e.Err }

// Field identifies the quantity of the offending request line.
func (e *LineStockError) Field() string {
	return fmt.Sprintf("items[%d].quantity", e.Index)
}

// TransitionError reports a status change rejected by the transition table.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order status cannot change from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == apperr.ErrConflict }

// ConsistencyFaultError reports a stock decrement that failed after the
// order rows were written inside the placement transaction. The transaction
// is rolled back before this error reaches the caller.
//
// It matches both apperr.ErrConsistencyFault and its cause, so a lost race on
// stock still classifies as apperr.ErrInsufficientStock.
type ConsistencyFaultError struct {
	ProductID int64
	Err       error
}

func (e *ConsistencyFaultError) Error() string {
	return fmt.Sprintf("decrement stock for product %d: %v", e.ProductID, e.Err)
}

func (e *ConsistencyFaultError) Unwrap() []error {
	return []error{apperr.ErrConsistencyFault, e.Err}
}

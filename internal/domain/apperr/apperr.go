// Package apperr defines the error taxonomy shared by all domain services.
//
// Every classified failure matches exactly one of the kind sentinels below via
// errors.Is. Concrete error types carry the details (field, resource, id) and
// are inspected with errors.As.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind sentinels.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("conflict")
	ErrConsistencyFault  = errors.New("consistency fault")
)

// InvalidArgumentError reports malformed caller input for a single field.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

// Invalid returns an InvalidArgumentError for field.
func Invalid(field, reason string) error {
	return &InvalidArgumentError{Field: field, Reason: reason}
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// NotFoundError reports a missing entity, identified either by ID or by Key.
type NotFoundError struct {
	Resource string
	ID       int64
	Key      string
}

// NotFound returns a NotFoundError for resource with the given id.
func NotFound(resource string, id int64) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// NotFoundBy returns a NotFoundError for a lookup by a non-id key.
func NotFoundBy(resource, key string) error {
	return &NotFoundError{Resource: resource, Key: key}
}

func (e *NotFoundError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
	}
	return fmt.Sprintf("%s not found with id: %d", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ForbiddenError reports an authorization denial.
type ForbiddenError struct {
	Role   string
	Reason string
}

func (e *ForbiddenError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("role %s is not allowed to perform this operation", e.Role)
	}
	return fmt.Sprintf("role %s is not allowed to %s", e.Role, e.Reason)
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// ConflictError reports a request that contradicts current state, such as
// deleting a category still referenced by products.
type ConflictError struct {
	Reason string
}

// Conflict returns a ConflictError.
func Conflict(reason string) error {
	return &ConflictError{Reason: reason}
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Field returns the offending field name of an InvalidArgument error, if any.
// Errors outside this package expose it through a Field() method.
func Field(err error) string {
	var ia *InvalidArgumentError
	if errors.As(err, &ia) {
		return ia.Field
	}
	var f interface{ Field() string }
	if errors.As(err, &f) {
		return f.Field()
	}
	return ""
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrTransactionFailed      = errors.New("transaction failed")
	ErrUnauthenticated        = errors.New("authentication required")
)

// InsufficientStockError names the book that could not cover a request.
type InsufficientStockError struct {
	BookID    int64
	Title     string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (book %d): requested %d, available %d",
		e.Title, e.BookID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

var kinds = []error{
	ErrNotFound,
	ErrInvalidInput,
	ErrInsufficientStock,
	ErrPermissionDenied,
	ErrInvalidStateTransition,
	ErrTransactionFailed,
	ErrUnauthenticated,
}

// IsKind reports whether err belongs to the error taxonomy above.
func IsKind(err error) bool {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func NotFound(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
}

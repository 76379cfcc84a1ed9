package pos

import (
	"errors"
	"fmt"
)

var (
	ErrMissingData            = errors.New("missing required data")
	ErrInvalidInput           = errors.New("invalid input")
	ErrMissingClientForCredit = errors.New("a client is required for credit sales")
	ErrEntityNotFound         = errors.New("required item not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
)

type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product: %s", e.ProductName)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// IsClientError reports whether err was caused by the request rather than
// by the store.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingData) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrMissingClientForCredit) ||
		errors.Is(err, ErrInsufficientStock)
}

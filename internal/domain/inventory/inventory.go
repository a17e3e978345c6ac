// Package inventory defines the per-product, per-size stock ledger.
//
// Stock is decremented only when an order commits, via a conditional
// decrement at the storage layer (quantity - n WHERE quantity >= n), so two
// checkouts racing for the last unit can never both succeed.
package inventory

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// ErrInsufficientStock is the sentinel matched by errors.Is for any
// insufficient-stock failure.
var ErrInsufficientStock = errors.New("insufficient stock")

// InsufficientStockError reports which (product, size) pair could not be
// reserved. It matches ErrInsufficientStock via errors.Is.
type InsufficientStockError struct {
	ProductID string
	Size      string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s size %s (requested %d)", e.ProductID, e.Size, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Level is the available quantity for one (product, size) pair.
type Level struct {
	ProductID string
	Size      string
	Quantity  int
}

// Repository provides read access to stock levels. Reservation is not
// exposed here: it only ever happens inside the order commit transaction.
type Repository interface {
	LevelsByProduct(ctx context.Context, productID string) ([]Level, error)
}

package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrLineNotFound is returned when a cart line does not exist for the user.
var ErrLineNotFound = errors.New("cart line not found")

// Line is a single (product, size) entry in a user's cart. A user holds at
// most one line per (product, size) pair; adding the same pair again folds
// into the existing line's quantity.
type Line struct {
	ID        string
	UserID    string
	ProductID string
	Size      string
	Quantity  int
	AddedAt   time.Time
}

// Repository defines persistence operations for cart lines. Clearing the
// cart on order placement happens inside the order commit transaction, not
// through this interface.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]Line, error)
	Add(ctx context.Context, line *Line) error
	UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) error
	Remove(ctx context.Context, userID, lineID string) error
}

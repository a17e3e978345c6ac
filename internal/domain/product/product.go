package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID              string
	Name            string
	Description     string
	Price           decimal.Decimal
	DiscountedPrice *decimal.Decimal
	Category        string
	ImageURL        string
	Active          bool
}

// EffectivePrice returns the discounted price when one is set and lower
// than the base price, otherwise the base price. Order lines capture this
// value at purchase time.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountedPrice != nil && p.DiscountedPrice.LessThan(p.Price) {
		return *p.DiscountedPrice
	}
	return p.Price
}

// Repository defines read operations for the product catalog.
type Repository interface {
	// List returns active products, optionally restricted to one category.
	// An empty category means no filter.
	List(ctx context.Context, category string) ([]Product, error)
	// Categories returns the distinct category labels of active products.
	Categories(ctx context.Context) ([]string, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// Package loyalty implements the points ledger rules: earning on committed
// orders and capped redemption against the cart subtotal.
package loyalty

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInsufficientPoints is returned when a commit-time balance adjustment
// would drive the user's balance negative. This can only happen when the
// same balance is redeemed concurrently between quoting and committing.
var ErrInsufficientPoints = errors.New("insufficient loyalty points")

// pointsPer is the spend required to earn one point.
var pointsPer = decimal.NewFromInt(100)

// redeemCap is the fraction of the subtotal that points may cover.
var redeemCap = decimal.RequireFromString("0.10")

// PointsEarned returns the points earned for a committed order total:
// one point per 100 currency units, rounded down.
func PointsEarned(total decimal.Decimal) int {
	return int(total.Div(pointsPer).IntPart())
}

// Redeemable returns how many points may be redeemed against subtotal:
// the requested amount, capped at the available balance and at 10% of the
// subtotal (rounded down to a whole point). It never returns a negative
// value.
func Redeemable(requested, balance int, subtotal decimal.Decimal) int {
	if requested <= 0 || balance <= 0 {
		return 0
	}

	capped := int(subtotal.Mul(redeemCap).IntPart())

	used := requested
	if balance < used {
		used = balance
	}
	if capped < used {
		used = capped
	}
	return used
}

// Balances reads a user's current points balance. Mutations happen only
// inside the order commit transaction.
type Balances interface {
	LoyaltyBalance(ctx context.Context, userID string) (int, error)
}

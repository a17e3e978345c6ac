package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage applies a percentage of the subtotal, optionally capped.
	TypePercentage Type = "percentage"
	// TypeFixed subtracts a fixed amount, uncapped. The order total still
	// clamps at zero downstream.
	TypeFixed Type = "fixed"
)

var (
	// ErrNotFound is returned by repositories when no discount exists for a code.
	ErrNotFound = errors.New("discount code not found")
	// ErrUsageLimitReached is returned at redemption time when the usage
	// counter can no longer be incremented within the limit.
	ErrUsageLimitReached = errors.New("discount usage limit reached")
)

// Rule defines a discount code's pricing behaviour and eligibility
// constraints. UsageLimit zero means unlimited.
type Rule struct {
	Code           string
	Description    string
	Type           Type
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	MaxDiscount    *decimal.Decimal
	UsageLimit     int
	UsedCount      int
	Active         bool
	ValidFrom      *time.Time
	ValidUntil     *time.Time
}

// Reason explains why a quote carries no discount. Quoting fails closed: a
// code that cannot be applied yields a zero amount with a reason, never an
// error and never a charge.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNotFound          Reason = "not_found"
	ReasonInactive          Reason = "inactive"
	ReasonNotStarted        Reason = "not_started"
	ReasonExpired           Reason = "expired"
	ReasonUsageLimitReached Reason = "usage_limit_reached"
	ReasonBelowMinimum      Reason = "below_min_order_amount"
)

// Quote is the outcome of pricing a discount code against a subtotal.
type Quote struct {
	Code   string
	Amount decimal.Decimal
	Reason Reason
}

// Applied reports whether the quote carries an applicable discount.
func (q Quote) Applied() bool {
	return q.Reason == ReasonNone
}

// Repository provides lookup of discount rules. The usage counter is
// incremented by the order commit transaction, not through this interface,
// so an abandoned checkout never consumes a use.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}

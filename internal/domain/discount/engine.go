package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Engine prices discount codes against order subtotals.
type Engine struct {
	repo Repository
	now  func() time.Time
}

// NewEngine creates an Engine backed by the given Repository.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// Quote looks up the rule for code and prices it against subtotal. Business
// rejections (unknown code, inactive, outside the validity window, usage
// limit reached, subtotal below minimum) fail closed: the returned quote has
// a zero amount and a reason. Only infrastructure failures return an error.
func (e *Engine) Quote(ctx context.Context, code string, subtotal decimal.Decimal) (Quote, error) {
	rule, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return rejected(code, ReasonNotFound), nil
		}
		return Quote{}, errors.Wrap(err, "lookup discount")
	}

	return Apply(rule, subtotal, e.now()), nil
}

// Apply prices a rule against a subtotal at the given instant. It is pure:
// redeeming the code (incrementing its usage counter) happens only when an
// order is committed.
func Apply(rule *Rule, subtotal decimal.Decimal, now time.Time) Quote {
	if !rule.Active {
		return rejected(rule.Code, ReasonInactive)
	}
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return rejected(rule.Code, ReasonNotStarted)
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return rejected(rule.Code, ReasonExpired)
	}
	if rule.UsageLimit > 0 && rule.UsedCount >= rule.UsageLimit {
		return rejected(rule.Code, ReasonUsageLimitReached)
	}
	if subtotal.LessThan(rule.MinOrderAmount) {
		return rejected(rule.Code, ReasonBelowMinimum)
	}

	var amount decimal.Decimal
	switch rule.Type {
	case TypePercentage:
		amount = subtotal.Mul(rule.Value).Div(hundred)
		if rule.MaxDiscount != nil {
			amount = decimal.Min(amount, *rule.MaxDiscount)
		}
	case TypeFixed:
		amount = rule.Value
	default:
		return rejected(rule.Code, ReasonInactive)
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return Quote{Code: rule.Code, Amount: amount.Round(2)}
}

func rejected(code string, reason Reason) Quote {
	return Quote{Code: code, Amount: decimal.Zero, Reason: reason}
}

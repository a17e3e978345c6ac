package order

import (
	"github.com/shopspring/decimal"

	"github.com/shopsphere/storefront/internal/domain/discount"
	"github.com/shopsphere/storefront/internal/domain/loyalty"
)

// Pricing is the computed breakdown for a cart about to become an order.
type Pricing struct {
	Subtotal          decimal.Decimal
	DiscountAmount    decimal.Decimal
	DiscountCode      string
	DiscountReason    discount.Reason
	LoyaltyPointsUsed int
	Total             decimal.Decimal
}

// subtotalOf sums unit price times quantity across lines.
func subtotalOf(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// price combines the subtotal, a discount quote, and a loyalty redemption
// request into final totals. The total clamps at zero when the combined
// reductions exceed the subtotal.
func price(subtotal decimal.Decimal, quote discount.Quote, requestedPoints, balance int) Pricing {
	p := Pricing{
		Subtotal:       subtotal.Round(2),
		DiscountAmount: decimal.Zero,
		DiscountReason: quote.Reason,
	}
	if quote.Applied() {
		p.DiscountAmount = quote.Amount
		p.DiscountCode = quote.Code
	}

	p.LoyaltyPointsUsed = loyalty.Redeemable(requestedPoints, balance, subtotal)

	total := subtotal.
		Sub(p.DiscountAmount).
		Sub(decimal.NewFromInt(int64(p.LoyaltyPointsUsed)))
	if total.IsNegative() {
		total = decimal.Zero
	}
	p.Total = total.Round(2)

	return p
}

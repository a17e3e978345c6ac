package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopsphere/storefront/internal/domain/discount"
	"github.com/shopsphere/storefront/internal/domain/inventory"
	"github.com/shopsphere/storefront/internal/domain/loyalty"
	"github.com/shopsphere/storefront/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, user_id, subtotal, discount_amount, discount_code,
			loyalty_points_used, total_amount, payment_method, payment_status, payment_id,
			order_status, ship_house_number, ship_street, ship_address_line, ship_city,
			ship_state, ship_pincode, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, size, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	// The guard makes the decrement conditional: zero rows means someone
	// else took the stock first.
	decrementStockSQL = `UPDATE inventory SET quantity = quantity - $3
		WHERE product_id = $1 AND size = $2 AND quantity >= $3`

	redeemDiscountSQL = `UPDATE discounts SET used_count = used_count + 1
		WHERE code = $1 AND is_active AND (usage_limit = 0 OR used_count < usage_limit)`

	adjustLoyaltySQL = `UPDATE users SET loyalty_points = loyalty_points - $2 + $3
		WHERE id = $1 AND loyalty_points >= $2`

	clearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`

	consumeSessionSQL = `DELETE FROM payment_sessions WHERE gateway_order_id = $1`
)

var _ order.Committer = (*OrderStore)(nil)

// OrderStore finalizes orders. CommitOrder applies every side effect of
// placing an order in one transaction, so a failed stock reservation or an
// exhausted discount rolls everything back.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// CommitOrder atomically writes the order and its lines, reserves stock per
// line, redeems the discount, settles the loyalty redeem/earn delta, clears
// the cart, and, for gateway orders, consumes the staged payment session.
func (s *OrderStore) CommitOrder(ctx context.Context, p order.CommitParams) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	o := p.Order
	if _, err := tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.Subtotal, o.DiscountAmount, o.DiscountCode,
		o.LoyaltyPointsUsed, o.Total, o.PaymentMethod, o.PaymentStatus, o.PaymentID,
		o.Status, o.ShipTo.HouseNumber, o.ShipTo.Street, o.ShipTo.AddressLine,
		o.ShipTo.City, o.ShipTo.State, o.ShipTo.Pincode, o.CreatedAt,
	); err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	for _, line := range o.Lines {
		if _, err := tx.Exec(ctx, insertOrderItemSQL,
			o.ID, line.ProductID, line.Size, line.Quantity, line.UnitPrice,
		); err != nil {
			return fmt.Errorf("inserting order item: %w", err)
		}

		tag, err := tx.Exec(ctx, decrementStockSQL, line.ProductID, line.Size, line.Quantity)
		if err != nil {
			return fmt.Errorf("reserving stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return &inventory.InsufficientStockError{
				ProductID: line.ProductID,
				Size:      line.Size,
				Requested: line.Quantity,
			}
		}
	}

	if o.DiscountCode != "" {
		tag, err := tx.Exec(ctx, redeemDiscountSQL, o.DiscountCode)
		if err != nil {
			return fmt.Errorf("redeeming discount %q: %w", o.DiscountCode, err)
		}
		if tag.RowsAffected() == 0 {
			return discount.ErrUsageLimitReached
		}
	}

	if o.LoyaltyPointsUsed > 0 || p.PointsEarned > 0 {
		tag, err := tx.Exec(ctx, adjustLoyaltySQL, o.UserID, o.LoyaltyPointsUsed, p.PointsEarned)
		if err != nil {
			return fmt.Errorf("adjusting loyalty points: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return loyalty.ErrInsufficientPoints
		}
	}

	if _, err := tx.Exec(ctx, clearCartSQL, o.UserID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}

	// A replayed gateway callback finds the session already consumed and
	// rolls back without a duplicate order.
	if p.ConsumeSessionID != "" {
		tag, err := tx.Exec(ctx, consumeSessionSQL, p.ConsumeSessionID)
		if err != nil {
			return fmt.Errorf("consuming payment session %q: %w", p.ConsumeSessionID, err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrSessionExpired
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order transaction: %w", err)
	}
	return nil
}

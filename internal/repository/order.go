package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopsphere/storefront/internal/domain/order"
)

const (
	orderColumns = `id, user_id, subtotal, discount_amount, discount_code, loyalty_points_used,
		total_amount, payment_method, payment_status, payment_id, order_status,
		ship_house_number, ship_street, ship_address_line, ship_city, ship_state, ship_pincode,
		created_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC`

	listOrderItemsSQL = `SELECT oi.order_id, oi.product_id, p.name, oi.size, oi.quantity, oi.unit_price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository reads backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByID loads a single order with its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, getOrderSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	lines, err := r.linesFor(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]

	return o, nil
}

// ListByUser returns the user's orders, newest first, with lines attached.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	defer rows.Close()

	var (
		orders []order.Order
		ids    []string
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}

	return orders, nil
}

func (r *OrderRepository) linesFor(ctx context.Context, orderIDs []string) (map[string][]order.Line, error) {
	rows, err := r.pool.Query(ctx, listOrderItemsSQL, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()

	lines := make(map[string][]order.Line, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			l       order.Line
		)
		if err := rows.Scan(&orderID, &l.ProductID, &l.Name, &l.Size, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		lines[orderID] = append(lines[orderID], l)
	}
	return lines, rows.Err()
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.Subtotal, &o.DiscountAmount, &o.DiscountCode,
		&o.LoyaltyPointsUsed, &o.Total, &o.PaymentMethod, &o.PaymentStatus,
		&o.PaymentID, &o.Status,
		&o.ShipTo.HouseNumber, &o.ShipTo.Street, &o.ShipTo.AddressLine,
		&o.ShipTo.City, &o.ShipTo.State, &o.ShipTo.Pincode,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopsphere/storefront/internal/domain/cart"
)

const (
	listCartSQL = `SELECT id, user_id, product_id, size, quantity, added_at
		FROM cart_items WHERE user_id = $1 ORDER BY added_at`

	// Re-adding a (product, size) pair folds into the existing line.
	addCartLineSQL = `INSERT INTO cart_items (id, user_id, product_id, size, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, product_id, size)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	updateCartQuantitySQL = `UPDATE cart_items SET quantity = $3
		WHERE user_id = $1 AND id = $2`

	removeCartLineSQL = `DELETE FROM cart_items WHERE user_id = $1 AND id = $2`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// ListByUser returns the user's cart lines in insertion order.
func (r *CartRepository) ListByUser(ctx context.Context, userID string) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, listCartSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart for user %q: %w", userID, err)
	}
	defer rows.Close()

	var lines []cart.Line
	for rows.Next() {
		var l cart.Line
		if err := rows.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Size, &l.Quantity, &l.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning cart line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// Add inserts a cart line, folding quantity into an existing line for the
// same (product, size) pair. A missing line ID is generated.
func (r *CartRepository) Add(ctx context.Context, line *cart.Line) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}

	_, err := r.pool.Exec(ctx, addCartLineSQL,
		line.ID, line.UserID, line.ProductID, line.Size, line.Quantity,
	)
	if err != nil {
		return fmt.Errorf("adding cart line: %w", err)
	}
	return nil
}

// UpdateQuantity sets an existing line's quantity.
func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) error {
	tag, err := r.pool.Exec(ctx, updateCartQuantitySQL, userID, lineID, quantity)
	if err != nil {
		return fmt.Errorf("updating cart line %q: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// Remove deletes a cart line.
func (r *CartRepository) Remove(ctx context.Context, userID, lineID string) error {
	tag, err := r.pool.Exec(ctx, removeCartLineSQL, userID, lineID)
	if err != nil {
		return fmt.Errorf("removing cart line %q: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

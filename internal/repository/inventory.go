package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopsphere/storefront/internal/domain/inventory"
)

const (
	levelsByProductSQL = `SELECT product_id, size, quantity
		FROM inventory WHERE product_id = $1 ORDER BY size`

	setLevelSQL = `INSERT INTO inventory (product_id, size, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id, size) DO UPDATE SET quantity = EXCLUDED.quantity`
)

var _ inventory.Repository = (*InventoryRepository)(nil)

// InventoryRepository implements inventory.Repository backed by PostgreSQL.
// Decrements are not exposed here; they happen inside the order commit
// transaction.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository returns an InventoryRepository that uses the given pool.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// LevelsByProduct returns the stock levels for every size of a product.
func (r *InventoryRepository) LevelsByProduct(ctx context.Context, productID string) ([]inventory.Level, error) {
	rows, err := r.pool.Query(ctx, levelsByProductSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing inventory for product %q: %w", productID, err)
	}
	defer rows.Close()

	var levels []inventory.Level
	for rows.Next() {
		var l inventory.Level
		if err := rows.Scan(&l.ProductID, &l.Size, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scanning inventory level: %w", err)
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// SetLevel writes an absolute stock level. Used by the seed tool.
func (r *InventoryRepository) SetLevel(ctx context.Context, productID, size string, quantity int) error {
	_, err := r.pool.Exec(ctx, setLevelSQL, productID, size, quantity)
	if err != nil {
		return fmt.Errorf("setting inventory for product %q size %q: %w", productID, size, err)
	}
	return nil
}

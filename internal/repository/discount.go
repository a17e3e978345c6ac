package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopsphere/storefront/internal/domain/discount"
)

const (
	findDiscountSQL = `SELECT code, description, discount_type, value, min_order_amount,
			max_discount, usage_limit, used_count, is_active, valid_from, valid_until
		FROM discounts WHERE code = $1`

	upsertDiscountSQL = `INSERT INTO discounts (code, description, discount_type, value,
			min_order_amount, max_discount, usage_limit, is_active, valid_from, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (code) DO UPDATE SET
			description = EXCLUDED.description,
			discount_type = EXCLUDED.discount_type,
			value = EXCLUDED.value,
			min_order_amount = EXCLUDED.min_order_amount,
			max_discount = EXCLUDED.max_discount,
			usage_limit = EXCLUDED.usage_limit,
			is_active = EXCLUDED.is_active,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
// Codes are stored and matched upper-case.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindByCode returns the rule for a code, matching case-insensitively.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Rule, error) {
	row := r.pool.QueryRow(ctx, findDiscountSQL, strings.ToUpper(strings.TrimSpace(code)))

	var d discount.Rule
	err := row.Scan(
		&d.Code, &d.Description, &d.Type, &d.Value, &d.MinOrderAmount,
		&d.MaxDiscount, &d.UsageLimit, &d.UsedCount, &d.Active,
		&d.ValidFrom, &d.ValidUntil,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("finding discount %q: %w", code, err)
	}
	return &d, nil
}

// Upsert inserts or replaces a discount rule. Used by the seed and ingest
// tools; the usage counter is never reset.
func (r *DiscountRepository) Upsert(ctx context.Context, d *discount.Rule) error {
	_, err := r.pool.Exec(ctx, upsertDiscountSQL,
		strings.ToUpper(d.Code), d.Description, d.Type, d.Value, d.MinOrderAmount,
		d.MaxDiscount, d.UsageLimit, d.Active, d.ValidFrom, d.ValidUntil,
	)
	if err != nil {
		return fmt.Errorf("upserting discount %q: %w", d.Code, err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopsphere/storefront/internal/domain/loyalty"
)

const (
	loyaltyBalanceSQL = `SELECT loyalty_points FROM users WHERE id = $1`

	upsertUserSQL = `INSERT INTO users (id, email, full_name, loyalty_points)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, full_name = EXCLUDED.full_name`
)

// ErrUserNotFound is returned when a user id has no row.
var ErrUserNotFound = errors.New("user not found")

var _ loyalty.Balances = (*UserRepository)(nil)

// UserRepository provides user account reads backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// LoyaltyBalance returns the user's current loyalty point balance.
func (r *UserRepository) LoyaltyBalance(ctx context.Context, userID string) (int, error) {
	var points int
	err := r.pool.QueryRow(ctx, loyaltyBalanceSQL, userID).Scan(&points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("getting loyalty balance for %q: %w", userID, err)
	}
	return points, nil
}

// Upsert creates or updates a user account. Loyalty points are only set on
// first insert; the order commit transaction owns balance changes.
func (r *UserRepository) Upsert(ctx context.Context, id, email, fullName string, points int) error {
	_, err := r.pool.Exec(ctx, upsertUserSQL, id, email, fullName, points)
	if err != nil {
		return fmt.Errorf("upserting user %q: %w", id, err)
	}
	return nil
}

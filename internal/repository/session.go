package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopsphere/storefront/internal/domain/order"
)

const (
	createSessionSQL = `INSERT INTO payment_sessions (gateway_order_id, user_id, snapshot, expires_at)
		VALUES ($1, $2, $3, $4)`

	// Expired rows are invisible even before the reaper removes them.
	findSessionSQL = `SELECT gateway_order_id, user_id, snapshot, expires_at
		FROM payment_sessions WHERE gateway_order_id = $1 AND expires_at > now()`

	deleteExpiredSessionsSQL = `DELETE FROM payment_sessions WHERE expires_at <= now()`
)

var _ order.SessionRepository = (*SessionRepository)(nil)

// SessionRepository implements order.SessionRepository backed by PostgreSQL.
// The priced order snapshot is serialized into a JSONB column.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stages a payment session.
func (r *SessionRepository) Create(ctx context.Context, s *order.Session) error {
	snapshot, err := json.Marshal(s.Order)
	if err != nil {
		return fmt.Errorf("marshaling order snapshot: %w", err)
	}

	_, err = r.pool.Exec(ctx, createSessionSQL,
		s.GatewayOrderID, s.UserID, snapshot, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("creating payment session %q: %w", s.GatewayOrderID, err)
	}
	return nil
}

// Find loads an unexpired session. Missing and expired rows both yield
// order.ErrSessionExpired.
func (r *SessionRepository) Find(ctx context.Context, gatewayOrderID string) (*order.Session, error) {
	var (
		s        order.Session
		snapshot []byte
	)
	err := r.pool.QueryRow(ctx, findSessionSQL, gatewayOrderID).
		Scan(&s.GatewayOrderID, &s.UserID, &snapshot, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrSessionExpired
		}
		return nil, fmt.Errorf("finding payment session %q: %w", gatewayOrderID, err)
	}

	var o order.Order
	if err := json.Unmarshal(snapshot, &o); err != nil {
		return nil, fmt.Errorf("unmarshaling order snapshot: %w", err)
	}
	s.Order = &o

	return &s, nil
}

// DeleteExpired removes sessions past their TTL, returning how many were
// reaped.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, deleteExpiredSessionsSQL)
	if err != nil {
		return 0, fmt.Errorf("deleting expired payment sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

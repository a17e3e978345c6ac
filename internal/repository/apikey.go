package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopsphere/storefront/internal/api"
)

const (
	findAPIKeySQL = `SELECT id, key_hash, name FROM api_keys
		WHERE key_hash = $1 AND is_active`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash, name = EXCLUDED.name`
)

var _ api.APIKeyRepository = (*APIKeyRepository)(nil)

// APIKeyRepository implements api.APIKeyRepository backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an active API key by its SHA-256 hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*api.APIKeyInfo, error) {
	var info api.APIKeyInfo
	err := r.pool.QueryRow(ctx, findAPIKeySQL, hash).Scan(&info.ID, &info.KeyHash, &info.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrKeyNotFound
		}
		return nil, fmt.Errorf("finding api key: %w", err)
	}
	return &info, nil
}

// Upsert stores an API key hash. Used by the seed tool.
func (r *APIKeyRepository) Upsert(ctx context.Context, id, keyHash, name string) error {
	_, err := r.pool.Exec(ctx, upsertAPIKeySQL, id, keyHash, name)
	if err != nil {
		return fmt.Errorf("upserting api key %q: %w", id, err)
	}
	return nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConfigRepository stores operator settings as key -> JSON document.
type ConfigRepository interface {
	// Get returns (nil, nil) when no entry exists for the key.
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Upsert(ctx context.Context, key string, value json.RawMessage) error
}

type configRepo struct {
	pool *pgxpool.Pool
}

func NewConfigRepo(pool *pgxpool.Pool) ConfigRepository {
	return &configRepo{pool: pool}
}

func (r *configRepo) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var value json.RawMessage
	err := r.pool.QueryRow(ctx, `SELECT value FROM config WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting config %q: %w", key, err)
	}
	return value, nil
}

func (r *configRepo) Upsert(ctx context.Context, key string, value json.RawMessage) error {
	const q = `
		INSERT INTO config (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`
	if _, err := r.pool.Exec(ctx, q, key, value); err != nil {
		return fmt.Errorf("upserting config %q: %w", key, err)
	}
	return nil
}

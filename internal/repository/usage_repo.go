package repository

import (
	"context"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository stores per-(user, model) daily counters.
type UsageRepository interface {
	// GetOrCreateEntry returns the usage row for (userID, model), inserting
	// a zero row first if none exists.
	GetOrCreateEntry(ctx context.Context, userID, modelTag string) (*model.UsageEntry, error)
	SaveEntry(ctx context.Context, userID string, e *model.UsageEntry) error
	ListEntries(ctx context.Context, userID string) ([]model.UsageEntry, error)
	// EnsureEntries backfills zero rows for every model tag the user is
	// missing, so each user always carries one entry per known model.
	EnsureEntries(ctx context.Context, userID string, modelTags []string) error
}

type usageRepo struct {
	pool *pgxpool.Pool
}

func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

func (r *usageRepo) GetOrCreateEntry(ctx context.Context, userID, modelTag string) (*model.UsageEntry, error) {
	const insertQ = `
		INSERT INTO usage_entries (user_id, model)
		VALUES ($1, $2)
		ON CONFLICT (user_id, model) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, insertQ, userID, modelTag); err != nil {
		return nil, fmt.Errorf("ensuring usage entry for user %s: %w", userID, err)
	}

	const selectQ = `
		SELECT model, daily_count, last_reset
		FROM usage_entries
		WHERE user_id = $1 AND model = $2
	`
	var e model.UsageEntry
	if err := r.pool.QueryRow(ctx, selectQ, userID, modelTag).Scan(&e.Model, &e.DailyCount, &e.LastReset); err != nil {
		return nil, fmt.Errorf("getting usage entry for user %s: %w", userID, err)
	}
	return &e, nil
}

func (r *usageRepo) SaveEntry(ctx context.Context, userID string, e *model.UsageEntry) error {
	const q = `
		UPDATE usage_entries
		SET daily_count = $1, last_reset = $2
		WHERE user_id = $3 AND model = $4
	`
	result, err := r.pool.Exec(ctx, q, e.DailyCount, e.LastReset, userID, e.Model)
	if err != nil {
		return fmt.Errorf("saving usage entry for user %s: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *usageRepo) ListEntries(ctx context.Context, userID string) ([]model.UsageEntry, error) {
	const q = `
		SELECT model, daily_count, last_reset
		FROM usage_entries
		WHERE user_id = $1
		ORDER BY model
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("querying usage entries for user %s: %w", userID, err)
	}
	defer rows.Close()

	var entries []model.UsageEntry
	for rows.Next() {
		var e model.UsageEntry
		if err := rows.Scan(&e.Model, &e.DailyCount, &e.LastReset); err != nil {
			return nil, fmt.Errorf("scanning usage entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating usage entry rows: %w", err)
	}
	return entries, nil
}

func (r *usageRepo) EnsureEntries(ctx context.Context, userID string, modelTags []string) error {
	const q = `
		INSERT INTO usage_entries (user_id, model)
		SELECT $1, unnest($2::text[])
		ON CONFLICT (user_id, model) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, q, userID, modelTags); err != nil {
		return fmt.Errorf("backfilling usage entries for user %s: %w", userID, err)
	}
	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// KVRepository stores key-value entries in the kv_entries table.
type KVRepository struct {
	pool *pgxpool.Pool
}

func (r *KVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	const q = `select value from kv_entries where key = $1;`

	var value string
	if err := r.pool.QueryRow(ctx, q, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to select kv entry %q: %w", key, err)
	}
	return value, true, nil
}

// Put upserts the entry in a single statement, so readers see either the old or the new value.
func (r *KVRepository) Put(ctx context.Context, key string, value string) error {
	const q = `
		insert into kv_entries (key, value, updated_at) values ($1, $2, now())
		on conflict (key) do update
		  set value = excluded.value, updated_at = excluded.updated_at;
	`

	if _, err := r.pool.Exec(ctx, q, key, value); err != nil {
		return fmt.Errorf("failed to upsert kv entry %q: %w", key, err)
	}
	return nil
}

func NewKVRepository(pool *pgxpool.Pool) *KVRepository {
	return &KVRepository{pool: pool}
}

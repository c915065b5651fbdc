// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/alphasource/internal/platform/database/schema"
	"github.com/taibuivan/alphasource/internal/platform/postgres"
)

// PostgresStore implements [Store] on system.setting.
type PostgresStore struct {
	pool postgres.DB
}

// NewPostgresStore creates a new Postgres-backed [Store].
func NewPostgresStore(pool postgres.DB) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Load reads every setting row.
func (store *PostgresStore) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	table := schema.SystemSetting
	query := fmt.Sprintf(`SELECT %s, %s FROM %s`, table.Key, table.Value, table.Table)

	rows, err := store.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_settings_load_failed: %w", err)
	}
	defer rows.Close()

	values := map[string]json.RawMessage{}
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("postgres_settings_scan_failed: %w", err)
		}
		values[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_settings_rows_failed: %w", err)
	}

	return values, nil
}

// Save upserts the given keys in a single transaction.
func (store *PostgresStore) Save(ctx context.Context, values map[string]json.RawMessage, updatedBy string) error {
	table := schema.SystemSetting
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s, %[3]s, %[4]s, %[5]s)
		VALUES ($1, $2::jsonb, NULLIF($3, '')::uuid, NOW())
		ON CONFLICT (%[2]s) DO UPDATE SET
			%[3]s = EXCLUDED.%[3]s,
			%[4]s = EXCLUDED.%[4]s,
			%[5]s = EXCLUDED.%[5]s`,
		table.Table, table.Key, table.Value, table.UpdatedBy, table.UpdatedAt)

	err := pgx.BeginFunc(ctx, store.pool, func(tx pgx.Tx) error {
		for key, value := range values {
			if _, err := tx.Exec(ctx, query, key, string(value), updatedBy); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres_settings_save_failed: %w", err)
	}
	return nil
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/alphasource/internal/platform/database/schema"
	"github.com/taibuivan/alphasource/internal/platform/postgres"
)

// PostgresStore implements [Store] on the system.auditlog table.
type PostgresStore struct {
	pool postgres.DB
}

// NewPostgresStore creates a new PostgreSQL implementation of [Store].
func NewPostgresStore(pool postgres.DB) *PostgresStore {
	return &PostgresStore{pool: pool}
}

/*
Append inserts one audit row.

Parameters:
  - context: context.Context
  - entry: *Entry

Returns:
  - error: Persistence failures
*/
func (store *PostgresStore) Append(context context.Context, entry *Entry) error {
	table := schema.SystemAuditLog
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, NULLIF($2, '')::uuid, NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9)`,
		table.Table,
		table.ID, table.ActorID, table.ActorEmail, table.Action, table.TargetType,
		table.TargetID, table.Details, table.IPAddress, table.CreatedAt,
	)

	_, err := store.pool.Exec(context, query,
		entry.ID,
		entry.ActorID,
		entry.ActorEmail,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Details,
		entry.IPAddress,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_audit_repo_append_failed: %w", err)
	}

	return nil
}

/*
List returns a newest-first page of audit rows and the total count.

Parameters:
  - context: context.Context
  - limit: int
  - offset: int

Returns:
  - []*Entry: Page of entries
  - int: Total entries
  - error: Retrieval failures
*/
func (store *PostgresStore) List(context context.Context, limit, offset int) ([]*Entry, int, error) {
	table := schema.SystemAuditLog

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table.Table)
	if err := store.pool.QueryRow(context, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_audit_repo_count_failed: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s, COALESCE(%s::text, ''), COALESCE(%s, ''), %s, %s, COALESCE(%s, ''), %s, COALESCE(%s, ''), %s
		FROM %s
		ORDER BY %s DESC, %s DESC
		LIMIT $1 OFFSET $2`,
		table.ID, table.ActorID, table.ActorEmail, table.Action, table.TargetType,
		table.TargetID, table.Details, table.IPAddress, table.CreatedAt,
		table.Table,
		table.CreatedAt, table.ID,
	)

	rows, err := store.pool.Query(context, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_audit_repo_list_failed: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Entry, error) {
		entry := &Entry{}
		err := row.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.ActorEmail,
			&entry.Action,
			&entry.TargetType,
			&entry.TargetID,
			&entry.Details,
			&entry.IPAddress,
			&entry.CreatedAt,
		)
		return entry, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_audit_repo_scan_failed: %w", err)
	}

	return entries, total, nil
}

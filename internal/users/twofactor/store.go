// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package twofactor

import (
	"context"
	"fmt"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/database/schema"
	"github.com/taibuivan/alphasource/internal/platform/postgres"
)

// Store writes the two-factor columns of a user account.
type Store interface {

	/*
		BeginSetup stores a pending secret and backup digests.

		Description: Only succeeds while 2FA is disabled, so a second setup
		cannot replace the secret of an enabled account.

		Returns:
		  - error: apperr.Conflict when 2FA is already enabled
	*/
	BeginSetup(context context.Context, userID, secret string, backupHashes []string) error

	// Enable turns 2FA on if the stored secret is still secret.
	Enable(context context.Context, userID, secret string) error

	// Disable clears the secret, backup digests and flag.
	Disable(context context.Context, userID string) error

	// ReplaceBackupCodes swaps expected for remaining only if the stored
	// digests still equal expected. It reports whether the swap happened.
	ReplaceBackupCodes(context context.Context, userID string, expected, remaining []string) (bool, error)
}

// PostgresStore implements [Store] on users.account.
type PostgresStore struct {
	pool postgres.DB
}

// NewPostgresStore creates a new Postgres-backed [Store].
func NewPostgresStore(pool postgres.DB) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (store *PostgresStore) BeginSetup(context context.Context, userID, secret string, backupHashes []string) error {
	table := schema.UserAccount
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $2, %s = $3, %s = NOW()
		WHERE %s = $1 AND %s = FALSE`,
		table.Table, table.TwoFactorSecret, table.TwoFactorBackupCodes, table.UpdatedAt,
		table.ID, table.TwoFactorEnabled)

	tag, err := store.pool.Exec(context, query, userID, secret, backupHashes)
	if err != nil {
		return fmt.Errorf("postgres_twofactor_setup_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("Two-factor authentication is already enabled")
	}
	return nil
}

func (store *PostgresStore) Enable(context context.Context, userID, secret string) error {
	table := schema.UserAccount
	query := fmt.Sprintf(`
		UPDATE %s SET %s = TRUE, %s = NOW()
		WHERE %s = $1 AND %s = FALSE AND %s = $2`,
		table.Table, table.TwoFactorEnabled, table.UpdatedAt,
		table.ID, table.TwoFactorEnabled, table.TwoFactorSecret)

	tag, err := store.pool.Exec(context, query, userID, secret)
	if err != nil {
		return fmt.Errorf("postgres_twofactor_enable_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("Two-factor setup changed, start again")
	}
	return nil
}

func (store *PostgresStore) Disable(context context.Context, userID string) error {
	table := schema.UserAccount
	query := fmt.Sprintf(`
		UPDATE %s SET %s = FALSE, %s = NULL, %s = '{}', %s = NOW()
		WHERE %s = $1`,
		table.Table, table.TwoFactorEnabled, table.TwoFactorSecret, table.TwoFactorBackupCodes,
		table.UpdatedAt, table.ID)

	tag, err := store.pool.Exec(context, query, userID)
	if err != nil {
		return fmt.Errorf("postgres_twofactor_disable_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

func (store *PostgresStore) ReplaceBackupCodes(context context.Context, userID string, expected, remaining []string) (bool, error) {
	table := schema.UserAccount
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $3, %s = NOW()
		WHERE %s = $1 AND %s = $2::text[]`,
		table.Table, table.TwoFactorBackupCodes, table.UpdatedAt,
		table.ID, table.TwoFactorBackupCodes)

	if expected == nil {
		expected = []string{}
	}
	if remaining == nil {
		remaining = []string{}
	}

	tag, err := store.pool.Exec(context, query, userID, expected, remaining)
	if err != nil {
		return false, fmt.Errorf("postgres_twofactor_backup_codes_failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

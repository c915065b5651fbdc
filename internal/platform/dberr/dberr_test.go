// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/dberr"
)

/*
TestWrap covers the classification of raw driver errors.
*/
func TestWrap(t *testing.T) {
	assert.Nil(t, dberr.Wrap(nil, "User"))

	notFound := apperr.As(dberr.Wrap(pgx.ErrNoRows, "User"))
	assert.Equal(t, "NOT_FOUND", notFound.Code)
	assert.Equal(t, "User not found", notFound.Message)

	conflict := apperr.Conflict("taken")
	assert.Same(t, conflict, dberr.Wrap(conflict, "User"))

	internal := apperr.As(dberr.Wrap(errors.New("boom"), "User"))
	assert.Equal(t, "INTERNAL_ERROR", internal.Code)
}

/*
TestIsUniqueViolation checks SQLSTATE and constraint matching through wrapping.
*/
func TestIsUniqueViolation(t *testing.T) {
	pgError := &pgconn.PgError{Code: "23505", ConstraintName: "account_email_key"}
	wrapped := fmt.Errorf("postgres_user_repo_create_failed: %w", pgError)

	assert.True(t, dberr.IsUniqueViolation(wrapped, ""))
	assert.True(t, dberr.IsUniqueViolation(wrapped, "account_email_key"))
	assert.False(t, dberr.IsUniqueViolation(wrapped, "account_single_owner"))
	assert.False(t, dberr.IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, dberr.IsUniqueViolation(errors.New("plain"), ""))
}

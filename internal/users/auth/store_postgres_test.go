// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/sec"
	"github.com/taibuivan/alphasource/internal/users/auth"
)

func newUserRepositoryWithMock(t *testing.T) (*auth.PostgresUserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return auth.NewUserRepository(mock), mock
}

// sqlWords matches query word for word, ignoring layout whitespace.
func sqlWords(query string) string {
	words := strings.Fields(query)
	for i, word := range words {
		words[i] = regexp.QuoteMeta(word)
	}
	return strings.Join(words, `\s+`)
}

var userRowColumns = []string{
	"id", "email", "passwordhash", "firstname", "lastname", "profileimageurl",
	"role", "isadmin", "isbanned", "bannedreason", "emailverifiedat",
	"twofactorenabled", "twofactorsecret", "twofactorbackupcodes", "externalid",
	"lastloginat", "createdat", "updatedat",
}

// userRow returns one users.account row in scan order.
func userRow(id, email, passwordHash, externalID string, verifiedAt time.Time) *pgxmock.Rows {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(userRowColumns).AddRow(
		id, email, passwordHash, "Grace", "Hopper", "",
		"user", false, false, "", &verifiedAt,
		false, "", []string{}, externalID,
		&created, created, created,
	)
}

var (
	upsertSQL = `(?s)` +
		sqlWords(`INSERT INTO users.account AS account (id, externalid, email, firstname, lastname, profileimageurl, role, emailverifiedat)`) +
		`.*` + sqlWords(`ON CONFLICT (externalid) WHERE externalid IS NOT NULL DO UPDATE SET`) +
		`.*` + sqlWords(`emailverifiedat = COALESCE(account.emailverifiedat, EXCLUDED.emailverifiedat)`)
	findByEmailSQL = `(?s)` + sqlWords(`FROM users.account WHERE email = $1`)
)

/*
TestUpsert_StoresNormalisedIdentity binds a provider subject to an account
and keeps an earlier verification on conflict.
*/
func TestUpsert_StoresNormalisedIdentity(t *testing.T) {
	repository, mock := newUserRepositoryWithMock(t)
	verified := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(upsertSQL).
		WithArgs(pgxmock.AnyArg(), "sub-1", "grace@example.com", "Grace", "Hopper", "", "user", pgxmock.AnyArg()).
		WillReturnRows(userRow("user-1", "grace@example.com", "", "sub-1", verified))

	user, err := repository.Upsert(context.Background(), auth.FederatedIdentity{
		Subject:       "sub-1",
		Email:         "Grace@Example.com",
		EmailVerified: true,
		FirstName:     " Grace ",
		LastName:      "Hopper",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "sub-1", user.ExternalID)
	assert.Equal(t, sec.RoleUser, user.Role)
	require.NotNil(t, user.EmailVerifiedAt)
	assert.True(t, user.EmailVerifiedAt.Equal(verified))
}

/*
TestUpsert_EmailOwnedByAnotherAccount maps the email unique violation to a
conflict instead of merging accounts.
*/
func TestUpsert_EmailOwnedByAnotherAccount(t *testing.T) {
	repository, mock := newUserRepositoryWithMock(t)

	mock.ExpectQuery(upsertSQL).
		WithArgs(pgxmock.AnyArg(), "sub-2", "ada@example.com", "", "", "", "user", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "account_email_key"})

	_, err := repository.Upsert(context.Background(), auth.FederatedIdentity{Subject: "sub-2", Email: "ada@example.com"})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperr.As(err).HTTPStatus)
}

func TestUpsert_OtherConstraintIsNotAConflict(t *testing.T) {
	repository, mock := newUserRepositoryWithMock(t)

	mock.ExpectQuery(upsertSQL).
		WithArgs(pgxmock.AnyArg(), "sub-3", "", "", "", "", "user", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "account_single_owner_idx"})

	_, err := repository.Upsert(context.Background(), auth.FederatedIdentity{Subject: "sub-3"})
	require.Error(t, err)
	assert.Nil(t, apperr.As(err))
	assert.Contains(t, err.Error(), "postgres_user_repo_upsert_failed")
}

/*
TestVerifyPassword_FederatedOnlyAccount never matches an account without a
stored password.
*/
func TestVerifyPassword_FederatedOnlyAccount(t *testing.T) {
	repository, mock := newUserRepositoryWithMock(t)

	mock.ExpectQuery(findByEmailSQL).
		WithArgs("grace@example.com").
		WillReturnRows(userRow("user-1", "grace@example.com", "", "sub-1", time.Now()))

	user, err := repository.VerifyPassword(context.Background(), "Grace@Example.com", "")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestVerifyPassword_UnknownEmail(t *testing.T) {
	repository, mock := newUserRepositoryWithMock(t)

	mock.ExpectQuery(findByEmailSQL).
		WithArgs("ghost@example.com").
		WillReturnError(pgx.ErrNoRows)

	user, err := repository.VerifyPassword(context.Background(), "ghost@example.com", "whatever")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestVerifyPassword_Match(t *testing.T) {
	repository, mock := newUserRepositoryWithMock(t)
	hash, err := sec.HashPassword("correct-horse")
	require.NoError(t, err)

	mock.ExpectQuery(findByEmailSQL).
		WithArgs("grace@example.com").
		WillReturnRows(userRow("user-1", "grace@example.com", hash, "", time.Now()))

	user, err := repository.VerifyPassword(context.Background(), "grace@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user-1", user.ID)
}

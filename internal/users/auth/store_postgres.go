// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/database/schema"
	"github.com/taibuivan/alphasource/internal/platform/dberr"
	"github.com/taibuivan/alphasource/internal/platform/postgres"
	"github.com/taibuivan/alphasource/internal/platform/sec"
	"github.com/taibuivan/alphasource/pkg/uuid"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool postgres.DB
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool postgres.DB) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

var userColumns = strings.Join([]string{
	schema.UserAccount.ID,
	"COALESCE(" + schema.UserAccount.Email + ", '')",
	"COALESCE(" + schema.UserAccount.Password + ", '')",
	"COALESCE(" + schema.UserAccount.FirstName + ", '')",
	"COALESCE(" + schema.UserAccount.LastName + ", '')",
	"COALESCE(" + schema.UserAccount.ProfileImageURL + ", '')",
	schema.UserAccount.Role,
	schema.UserAccount.IsAdmin,
	schema.UserAccount.IsBanned,
	"COALESCE(" + schema.UserAccount.BannedReason + ", '')",
	schema.UserAccount.EmailVerifiedAt,
	schema.UserAccount.TwoFactorEnabled,
	"COALESCE(" + schema.UserAccount.TwoFactorSecret + ", '')",
	schema.UserAccount.TwoFactorBackupCodes,
	"COALESCE(" + schema.UserAccount.ExternalID + ", '')",
	schema.UserAccount.LastLoginAt,
	schema.UserAccount.CreatedAt,
	schema.UserAccount.UpdatedAt,
}, ", ")

func scanUser(row pgx.Row) (*User, error) {
	var role string
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.ProfileImageURL,
		&role,
		&user.IsAdmin,
		&user.IsBanned,
		&user.BannedReason,
		&user.EmailVerifiedAt,
		&user.TwoFactorEnabled,
		&user.TwoFactorSecret,
		&user.TwoFactorBackupCodes,
		&user.ExternalID,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = sec.UserRole(role)
	return user, nil
}

/*
FindByID retrieves a user record by its unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		userColumns, schema.UserAccount.Table, schema.UserAccount.ID)

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

/*
FindByEmail retrieves a user record by email address.

Description: The argument is normalised first, stored emails already are.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		userColumns, schema.UserAccount.Table, schema.UserAccount.Email)

	user, err := scanUser(repository.pool.QueryRow(context, query, NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

/*
CreateWithPassword hashes the password and inserts a new account.

Parameters:
  - context: context.Context
  - input: NewPasswordUser

Returns:
  - *User: The stored row
  - error: apperr.Conflict on a duplicate email
*/
func (repository *PostgresUserRepository) CreateWithPassword(context context.Context, input NewPasswordUser) (*User, error) {
	hash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING %s`,
		schema.UserAccount.Table,
		schema.UserAccount.ID, schema.UserAccount.Email, schema.UserAccount.Password,
		schema.UserAccount.FirstName, schema.UserAccount.LastName, schema.UserAccount.Role,
		userColumns,
	)

	user, err := scanUser(repository.pool.QueryRow(context, query,
		uuid.New(),
		NormalizeEmail(input.Email),
		hash,
		strings.TrimSpace(input.FirstName),
		strings.TrimSpace(input.LastName),
		string(sec.RoleUser),
	))
	if err != nil {
		if dberr.IsUniqueViolation(err, schema.UserAccount.EmailIndex) {
			return nil, apperr.Conflict("Email is already registered")
		}
		return nil, fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return user, nil
}

// VerifyPassword returns the account when email and password match, (nil, nil) otherwise.
func (repository *PostgresUserRepository) VerifyPassword(context context.Context, email, password string) (*User, error) {
	user, err := repository.FindByEmail(context, email)
	if err != nil {
		var appErr *apperr.AppError
		if errors.As(err, &appErr) && appErr.Code == "NOT_FOUND" {
			// An empty hash still costs one bcrypt comparison
			sec.CheckPasswordHash(password, "")
			return nil, nil
		}
		return nil, err
	}

	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil
	}

	return user, nil
}

/*
Update applies a partial patch to an account.

Description: Nil patch fields keep the stored value. A ban patch sets the
flag and reason together, an unban clears the reason.

Parameters:
  - context: context.Context
  - id: string
  - patch: UserPatch

Returns:
  - *User: The refreshed row
  - error: apperr.NotFound or persistence failures
*/
func (repository *PostgresUserRepository) Update(context context.Context, id string, patch UserPatch) (*User, error) {
	table := schema.UserAccount
	query := fmt.Sprintf(`
		UPDATE %s SET
			%s = COALESCE($2::text, %s),
			%s = COALESCE($3::text, %s),
			%s = COALESCE($4::text, %s),
			%s = COALESCE($5::timestamptz, %s),
			%s = COALESCE($6::timestamptz, %s),
			%s = COALESCE($7::boolean, %s),
			%s = CASE WHEN $7::boolean IS NULL THEN %s WHEN $7::boolean THEN $8::text ELSE NULL END,
			%s = NOW()
		WHERE %s = $1
		RETURNING %s`,
		table.Table,
		table.FirstName, table.FirstName,
		table.LastName, table.LastName,
		table.ProfileImageURL, table.ProfileImageURL,
		table.EmailVerifiedAt, table.EmailVerifiedAt,
		table.LastLoginAt, table.LastLoginAt,
		table.IsBanned, table.IsBanned,
		table.BannedReason, table.BannedReason,
		table.UpdatedAt,
		table.ID,
		userColumns,
	)

	var banned *bool
	var reason *string
	if patch.Ban != nil {
		banned = &patch.Ban.Banned
		reason = &patch.Ban.Reason
	}

	user, err := scanUser(repository.pool.QueryRow(context, query,
		id,
		patch.FirstName,
		patch.LastName,
		patch.ProfileImageURL,
		patch.EmailVerifiedAt,
		patch.LastLoginAt,
		banned,
		reason,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_update_failed: %w", err)
	}

	return user, nil
}

/*
UpdateRole writes a new role.

Description: The partial unique index on the owner role turns a concurrent
second claim into a unique violation, reported as Forbidden.

Parameters:
  - context: context.Context
  - id: string
  - role: sec.UserRole

Returns:
  - *User: The refreshed row
  - error: apperr.NotFound, apperr.Forbidden or persistence failures
*/
func (repository *PostgresUserRepository) UpdateRole(context context.Context, id string, role sec.UserRole) (*User, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1 RETURNING %s`,
		schema.UserAccount.Table, schema.UserAccount.Role, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID, userColumns)

	user, err := scanUser(repository.pool.QueryRow(context, query, id, string(role)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		if dberr.IsUniqueViolation(err, schema.UserAccount.SingleOwnerIndex) {
			return nil, apperr.Forbidden("An owner already exists")
		}
		return nil, fmt.Errorf("postgres_user_repo_update_role_failed: %w", err)
	}

	return user, nil
}

// HasOwner reports whether an owner row exists.
func (repository *PostgresUserRepository) HasOwner(context context.Context) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`,
		schema.UserAccount.Table, schema.UserAccount.Role)

	var exists bool
	if err := repository.pool.QueryRow(context, query, string(sec.RoleOwner)).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres_user_repo_has_owner_failed: %w", err)
	}
	return exists, nil
}

// ListStaff returns owner and staff accounts, owner first.
func (repository *PostgresUserRepository) ListStaff(context context.Context) ([]*User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s IN ($1, $2)
		ORDER BY CASE %s WHEN $1 THEN 0 ELSE 1 END, %s ASC`,
		userColumns, schema.UserAccount.Table,
		schema.UserAccount.Role, schema.UserAccount.Role, schema.UserAccount.CreatedAt)

	rows, err := repository.pool.Query(context, query, string(sec.RoleOwner), string(sec.RoleStaff))
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_list_staff_failed: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_list_staff_scan_failed: %w", err)
	}
	return users, nil
}

/*
List returns one page of accounts, newest first.

Parameters:
  - context: context.Context
  - filter: ListFilter (empty Roles means every role)

Returns:
  - []*User: The page
  - int: Total matching rows
  - error: Query failures
*/
func (repository *PostgresUserRepository) List(context context.Context, filter ListFilter) ([]*User, int, error) {
	var roles []string
	for _, role := range filter.Roles {
		roles = append(roles, string(role))
	}

	where := fmt.Sprintf(`($1::text[] IS NULL OR %s = ANY($1::text[]))`, schema.UserAccount.Role)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, schema.UserAccount.Table, where)
	if err := repository.pool.QueryRow(context, countQuery, roles).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_count_failed: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY %s DESC, %s DESC
		LIMIT $2 OFFSET $3`,
		userColumns, schema.UserAccount.Table, where,
		schema.UserAccount.CreatedAt, schema.UserAccount.ID)

	rows, err := repository.pool.Query(context, query, roles, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_list_failed: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_list_scan_failed: %w", err)
	}

	return users, total, nil
}

/*
Upsert creates or refreshes the account bound to a federated subject.

Description: Provider claims overwrite profile fields when present. A
verified provider email marks the account verified once; it is never
un-verified by a later login.

Parameters:
  - context: context.Context
  - identity: FederatedIdentity

Returns:
  - *User: Stored row
  - error: apperr.Conflict when another account owns the email
*/
func (repository *PostgresUserRepository) Upsert(context context.Context, identity FederatedIdentity) (*User, error) {
	table := schema.UserAccount
	query := fmt.Sprintf(`
		INSERT INTO %[1]s AS account (%[2]s, %[3]s, %[4]s, %[5]s, %[6]s, %[7]s, %[8]s, %[9]s)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8)
		ON CONFLICT (%[3]s) WHERE %[3]s IS NOT NULL DO UPDATE SET
			%[4]s = COALESCE(EXCLUDED.%[4]s, account.%[4]s),
			%[5]s = COALESCE(EXCLUDED.%[5]s, account.%[5]s),
			%[6]s = COALESCE(EXCLUDED.%[6]s, account.%[6]s),
			%[7]s = COALESCE(EXCLUDED.%[7]s, account.%[7]s),
			%[9]s = COALESCE(account.%[9]s, EXCLUDED.%[9]s),
			%[10]s = NOW()
		RETURNING %[11]s`,
		table.Table,
		table.ID, table.ExternalID, table.Email, table.FirstName, table.LastName,
		table.ProfileImageURL, table.Role, table.EmailVerifiedAt,
		table.UpdatedAt,
		userColumns,
	)

	var verifiedAt *time.Time
	if identity.EmailVerified && identity.Email != "" {
		now := time.Now().UTC()
		verifiedAt = &now
	}

	user, err := scanUser(repository.pool.QueryRow(context, query,
		uuid.New(),
		identity.Subject,
		NormalizeEmail(identity.Email),
		strings.TrimSpace(identity.FirstName),
		strings.TrimSpace(identity.LastName),
		identity.ProfileImageURL,
		string(sec.RoleUser),
		verifiedAt,
	))
	if err != nil {
		if dberr.IsUniqueViolation(err, table.EmailIndex) {
			return nil, apperr.Conflict("Email is already registered to another account")
		}
		return nil, fmt.Errorf("postgres_user_repo_upsert_failed: %w", err)
	}

	return user, nil
}

// # Verification Token Repository

// PostgresVerificationTokenRepository implements VerificationTokenRepository.
type PostgresVerificationTokenRepository struct {
	pool postgres.DB
}

// NewVerificationTokenRepository creates a new Postgres-backed VerificationTokenRepository.
func NewVerificationTokenRepository(pool postgres.DB) *PostgresVerificationTokenRepository {
	return &PostgresVerificationTokenRepository{pool: pool}
}

// Create stores the token digest with its owner and deadline.
func (repository *PostgresVerificationTokenRepository) Create(context context.Context, token *VerificationToken) error {
	table := schema.UserEmailVerification
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s) VALUES ($1, $2, $3, $4, $5)`,
		table.Table, table.TokenHash, table.UserID, table.Type, table.ExpiresAt, table.CreatedAt)

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	_, err := repository.pool.Exec(context, query,
		token.TokenHash, token.UserID, token.Type, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres_verify_token_create_failed: %w", err)
	}
	return nil
}

/*
FindByHash loads a token by digest.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *VerificationToken: The stored record, possibly expired
  - error: apperr.NotFound or query failures
*/
func (repository *PostgresVerificationTokenRepository) FindByHash(context context.Context, tokenHash string) (*VerificationToken, error) {
	table := schema.UserEmailVerification
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s FROM %s WHERE %s = $1`,
		table.TokenHash, table.UserID, table.Type, table.ExpiresAt, table.CreatedAt,
		table.Table, table.TokenHash)

	token := &VerificationToken{}
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(
		&token.TokenHash,
		&token.UserID,
		&token.Type,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Verification token")
		}
		return nil, fmt.Errorf("postgres_verify_token_find_failed: %w", err)
	}

	return token, nil
}

// Delete removes a single token.
func (repository *PostgresVerificationTokenRepository) Delete(context context.Context, tokenHash string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.UserEmailVerification.Table, schema.UserEmailVerification.TokenHash)

	if _, err := repository.pool.Exec(context, query, tokenHash); err != nil {
		return fmt.Errorf("postgres_verify_token_delete_failed: %w", err)
	}
	return nil
}

// DeleteForUser removes every token issued to a user.
func (repository *PostgresVerificationTokenRepository) DeleteForUser(context context.Context, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.UserEmailVerification.Table, schema.UserEmailVerification.UserID)

	if _, err := repository.pool.Exec(context, query, userID); err != nil {
		return fmt.Errorf("postgres_verify_token_delete_user_failed: %w", err)
	}
	return nil
}

// PurgeExpired deletes tokens past their deadline and returns how many went.
func (repository *PostgresVerificationTokenRepository) PurgeExpired(context context.Context, before time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s < $1`,
		schema.UserEmailVerification.Table, schema.UserEmailVerification.ExpiresAt)

	tag, err := repository.pool.Exec(context, query, before)
	if err != nil {
		return 0, fmt.Errorf("postgres_verify_token_purge_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/alphasource/internal/platform/sec"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email, compared
		case-insensitively.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		CreateWithPassword hashes the password and persists a new "user" role account.

		Parameters:
		  - context: context.Context
		  - input: NewPasswordUser

		Returns:
		  - *User: The stored account
		  - error: apperr.Conflict when the email is taken
	*/
	CreateWithPassword(context context.Context, input NewPasswordUser) (*User, error)

	/*
		VerifyPassword checks a credential pair.

		Description: Unknown email and wrong password both yield (nil, nil) so
		callers cannot tell them apart.

		Parameters:
		  - context: context.Context
		  - email: string
		  - password: string

		Returns:
		  - *User: The account when the password matches
		  - error: Infrastructure failures only
	*/
	VerifyPassword(context context.Context, email, password string) (*User, error)

	/*
		Update applies a partial patch and returns the refreshed account.

		Parameters:
		  - context: context.Context
		  - id: string
		  - patch: UserPatch

		Returns:
		  - *User: Updated entity
		  - error: apperr.NotFound or persistence failures
	*/
	Update(context context.Context, id string, patch UserPatch) (*User, error)

	/*
		UpdateRole changes the role of an account.

		Parameters:
		  - context: context.Context
		  - id: string
		  - role: sec.UserRole

		Returns:
		  - *User: Updated entity
		  - error: apperr.Forbidden when a second owner would be created
	*/
	UpdateRole(context context.Context, id string, role sec.UserRole) (*User, error)

	// HasOwner reports whether any account holds the owner role.
	HasOwner(context context.Context) (bool, error)

	// ListStaff returns staff and owner accounts, owners first.
	ListStaff(context context.Context) ([]*User, error)

	// List returns one page of accounts and the total matching the filter.
	List(context context.Context, filter ListFilter) ([]*User, int, error)

	/*
		Upsert creates or refreshes the account bound to a federated subject.

		Parameters:
		  - context: context.Context
		  - identity: FederatedIdentity

		Returns:
		  - *User: Stored entity
		  - error: apperr.Conflict when the email belongs to another account
	*/
	Upsert(context context.Context, identity FederatedIdentity) (*User, error)
}

// # Ephemeral Tokens

// VerificationTokenRepository persists email verification tokens keyed by digest.
type VerificationTokenRepository interface {
	Create(context context.Context, token *VerificationToken) error

	// FindByHash returns apperr.NotFound when no token matches.
	FindByHash(context context.Context, tokenHash string) (*VerificationToken, error)

	Delete(context context.Context, tokenHash string) error

	// DeleteForUser drops every outstanding token of a user.
	DeleteForUser(context context.Context, userID string) error

	// PurgeExpired removes tokens whose deadline is before the given instant.
	PurgeExpired(context context.Context, before time.Time) (int64, error)
}

// ChallengeRepository stores pending two-factor login challenges.
type ChallengeRepository interface {
	Create(context context.Context, challenge *LoginChallenge, ttl time.Duration) error

	// Find returns apperr.NotFound when the challenge is absent.
	Find(context context.Context, tokenHash string) (*LoginChallenge, error)

	// Delete reports whether this call removed the challenge. At most one
	// caller observes true for a given challenge.
	Delete(context context.Context, tokenHash string) (bool, error)
}

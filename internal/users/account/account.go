// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles self-service profile management.

Users view and edit their own name and avatar, and anyone may look up the
public card of another user.

# Architecture

  - Entities: PublicProfile (DTO).
  - Domain: This package depends on the auth package for the User entity and
    its repository.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/alphasource/internal/platform/sec"
	"github.com/taibuivan/alphasource/internal/users/auth"
)

// # Domain Entities

// PublicProfile is the subset of a user that other members may see.
type PublicProfile struct {
	ID              string       `json:"id"`
	FirstName       string       `json:"firstName"`
	LastName        string       `json:"lastName"`
	ProfileImageURL string       `json:"profileImageUrl"`
	Role            sec.UserRole `json:"role"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// NewPublicProfile projects user onto its public fields.
func NewPublicProfile(user *auth.User) *PublicProfile {
	return &PublicProfile{
		ID:              user.ID,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		ProfileImageURL: user.ProfileImageURL,
		Role:            user.Role,
		CreatedAt:       user.CreatedAt,
	}
}

// # Repository Contracts

// AccountRepository defines the persistence contract for profiles. The auth
// user repository satisfies it.
type AccountRepository interface {
	/*
		FindByID retrieves a user record by their unique ID.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *User: Loaded account entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*auth.User, error)

	// Update applies a partial patch and returns the refreshed row.
	Update(context context.Context, id string, patch auth.UserPatch) (*auth.User, error)
}

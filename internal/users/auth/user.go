// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, tokens, login challenges) and the
logic for signup, password and federated login, the two-step 2FA login,
email verification and owner claiming.

# Architecture

This layer is the "Truth" of the system. Role and ban decisions made anywhere
else are always derived from a freshly loaded [User].
*/
package auth

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/taibuivan/alphasource/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of Alpha Source.
type User struct {
	ID                   string       `json:"id"`
	Email                string       `json:"email"`
	FirstName            string       `json:"firstName"`
	LastName             string       `json:"lastName"`
	ProfileImageURL      string       `json:"profileImageUrl"`
	PasswordHash         string       `json:"-"` // Explicitly omitted from JSON for security.
	Role                 sec.UserRole `json:"role"`
	IsAdmin              bool         `json:"isAdmin"`
	IsBanned             bool         `json:"isBanned"`
	BannedReason         string       `json:"bannedReason,omitempty"`
	EmailVerifiedAt      *time.Time   `json:"emailVerifiedAt"`
	TwoFactorEnabled     bool         `json:"twoFactorEnabled"`
	TwoFactorSecret      string       `json:"-"`
	TwoFactorBackupCodes []string     `json:"-"` // SHA-256 digests, one per unused code.
	ExternalID           string       `json:"-"`
	LastLoginAt          *time.Time   `json:"lastLoginAt"`
	CreatedAt            time.Time    `json:"createdAt"`
	UpdatedAt            time.Time    `json:"updatedAt"`
}

// EmailVerified reports whether the address has been confirmed.
func (user *User) EmailVerified() bool {
	return user.EmailVerifiedAt != nil
}

// Principal projects the authorization-relevant fields of the user.
func (user *User) Principal() *sec.Principal {
	return &sec.Principal{
		UserID:          user.ID,
		Email:           user.Email,
		Role:            user.Role,
		IsAdmin:         user.IsAdmin,
		IsBanned:        user.IsBanned,
		BannedReason:    user.BannedReason,
		EmailVerifiedAt: user.EmailVerifiedAt,
	}
}

// UserPatch lists the optional fields of a partial user update. Nil means
// "leave unchanged".
type UserPatch struct {
	FirstName       *string
	LastName        *string
	ProfileImageURL *string
	EmailVerifiedAt *time.Time
	LastLoginAt     *time.Time
	Ban             *BanState
}

// BanState sets or clears a ban together with its reason.
type BanState struct {
	Banned bool
	Reason string
}

// NewPasswordUser is the input of a password signup.
type NewPasswordUser struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// FederatedIdentity carries identity-provider claims keyed by the external subject.
type FederatedIdentity struct {
	Subject         string
	Email           string
	EmailVerified   bool
	FirstName       string
	LastName        string
	ProfileImageURL string
}

// ListFilter narrows the owner dashboard user list.
type ListFilter struct {
	Roles  []sec.UserRole
	Limit  int
	Offset int
}

// # Ephemeral Tokens

// Verification token types.
const (
	VerificationTypeSignup = "signup"
	VerificationTypeResend = "resend"
)

// VerificationToken is a single-use email verification record. Only the
// digest of the token is stored.
type VerificationToken struct {
	TokenHash string
	UserID    string
	Type      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// LoginChallenge is the "password verified, second factor pending" state.
// It grants no privilege on its own.
type LoginChallenge struct {
	TokenHash string    `json:"-"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the challenge is past its deadline at now.
func (challenge *LoginChallenge) Expired(now time.Time) bool {
	return now.After(challenge.ExpiresAt)
}

// # Normalisation

// NormalizeEmail trims and lower-cases an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldFirstName         = "firstName"
	FieldLastName          = "lastName"
	FieldEmail             = "email"
	FieldPassword          = "password"
	FieldToken             = "token"
	FieldChallengeToken    = "challengeToken"
	FieldTwoFactorCode     = "twoFactorCode"
	FieldEmailVerified     = "emailVerified"
	FieldRequiresTwoFactor = "requiresTwoFactor"
	FieldRequiresVerify    = "requiresEmailVerification"
	FieldID                = "id"
)

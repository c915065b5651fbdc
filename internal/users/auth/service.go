// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/audit"
	"github.com/taibuivan/alphasource/internal/platform/ctxutil"
	"github.com/taibuivan/alphasource/internal/platform/sec"
)

// # Contracts & Types

// Notifier delivers verification emails.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, to, firstName, token string) error
}

// SecondFactor checks the code of the second login step. It accepts a TOTP
// code or an unused backup code and consumes the latter.
type SecondFactor interface {
	VerifyLogin(ctx context.Context, user *User, code string) (bool, error)
}

// RegistrationPolicy reports whether new password signups are accepted.
type RegistrationPolicy interface {
	RegistrationOpen(ctx context.Context) (bool, error)
}

// AuditRecorder appends privileged actions to the audit log.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Dependencies groups the collaborators of [Service]. Repositories are
// required; a nil Registration means signups are always open.
type Dependencies struct {
	Users         UserRepository
	Verifications VerificationTokenRepository
	Challenges    ChallengeRepository
	Notifier      Notifier
	SecondFactor  SecondFactor
	Registration  RegistrationPolicy
	Audit         AuditRecorder
	ChallengeTTL  time.Duration
	Clock         func() time.Time
}

// Service implements signup, password and federated login, the two-step
// login challenge, email verification and the owner claim.
type Service struct {
	userRepository              UserRepository
	verificationTokenRepository VerificationTokenRepository
	challengeRepository         ChallengeRepository
	notifier                    Notifier
	secondFactor                SecondFactor
	registration                RegistrationPolicy
	auditor                     AuditRecorder
	challengeTTL                time.Duration
	now                         func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(deps Dependencies) *Service {
	service := &Service{
		userRepository:              deps.Users,
		verificationTokenRepository: deps.Verifications,
		challengeRepository:         deps.Challenges,
		notifier:                    deps.Notifier,
		secondFactor:                deps.SecondFactor,
		registration:                deps.Registration,
		auditor:                     deps.Audit,
		challengeTTL:                deps.ChallengeTTL,
		now:                         deps.Clock,
	}
	if service.challengeTTL <= 0 {
		service.challengeTTL = DefaultLoginChallengeTTL
	}
	if service.now == nil {
		service.now = time.Now
	}
	return service
}

var (
	errInvalidCredentials   = apperr.Unauthorized("Invalid email or password")
	errInvalidChallenge     = apperr.Unauthorized("Invalid or expired login challenge")
	errInvalidSecondFactor  = apperr.Unauthorized("Invalid two-factor code")
	errInvalidVerification  = apperr.ValidationError("Invalid or expired verification token")
	errRegistrationClosed   = apperr.Forbidden("Registration is currently closed")
	errOwnerAlreadyClaimed  = apperr.Forbidden("An owner already exists")
	errEmailAlreadyVerified = apperr.ValidationError("Email is already verified")
)

// # Registration Flow

// SignupInput holds the data required to enroll a new member.
type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

/*
Signup persists a new password account and mails a verification link.

Description: The account starts unverified with the "user" role. A failed
email is logged and does not fail the signup; the user can request a resend.

Parameters:
  - context: context.Context
  - input: SignupInput

Returns:
  - *User: Created entity
  - err: Forbidden (registration closed), Conflict (email taken) or storage errors
*/
func (service *Service) Signup(context context.Context, input SignupInput) (*User, error) {

	// Owner settings may close registration
	if service.registration != nil {
		open, err := service.registration.RegistrationOpen(context)
		if err != nil {
			return nil, fmt.Errorf("auth_service_registration_policy_failed: %w", err)
		}
		if !open {
			return nil, errRegistrationClosed
		}
	}

	user, err := service.userRepository.CreateWithPassword(context, NewPasswordUser(input))
	if err != nil {
		return nil, err
	}

	// Verification is an async-ready side effect of signup
	if err := service.sendVerification(context, user, VerificationTypeSignup); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "signup_verification_email_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return user, nil
}

// sendVerification issues a fresh token for user and mails it.
func (service *Service) sendVerification(context context.Context, user *User, tokenType string) error {
	token, err := sec.GenerateSecureToken(VerificationTokenLength)
	if err != nil {
		return fmt.Errorf("auth_service_verify_token_failed: %w", err)
	}

	now := service.now().UTC()
	record := &VerificationToken{
		TokenHash: sec.HashToken(token),
		UserID:    user.ID,
		Type:      tokenType,
		ExpiresAt: now.Add(VerificationTokenTTL),
		CreatedAt: now,
	}
	if err := service.verificationTokenRepository.Create(context, record); err != nil {
		return err
	}

	if service.notifier == nil {
		return nil
	}
	return service.notifier.SendVerificationEmail(context, user.Email, user.FirstName, token)
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is the outcome of the password step. Exactly one of User and
// ChallengeToken is set.
type LoginResult struct {
	User              *User
	RequiresTwoFactor bool
	ChallengeToken    string
}

/*
Login validates credentials and either completes the login or opens a
two-factor challenge.

Description: Unknown email and wrong password produce the same error. The ban
check runs after the password so it never reveals account state to a guesser.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: A logged-in user or a pending challenge
  - err: Unauthorized, ACCOUNT_BANNED or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginResult, error) {
	user, err := service.userRepository.VerifyPassword(context, input.Email, input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_verify_password_failed: %w", err)
	}
	if user == nil {
		return nil, errInvalidCredentials
	}

	if user.IsBanned {
		return nil, apperr.Banned(user.BannedReason)
	}

	// Second factor pending. The challenge token is the only handle to it.
	if user.TwoFactorEnabled {
		token, err := sec.GenerateSecureToken(LoginChallengeLength)
		if err != nil {
			return nil, fmt.Errorf("auth_service_challenge_token_failed: %w", err)
		}

		now := service.now().UTC()
		challenge := &LoginChallenge{
			TokenHash: sec.HashToken(token),
			UserID:    user.ID,
			ExpiresAt: now.Add(service.challengeTTL),
			CreatedAt: now,
		}
		if err := service.challengeRepository.Create(context, challenge, service.challengeTTL); err != nil {
			return nil, err
		}

		return &LoginResult{RequiresTwoFactor: true, ChallengeToken: token}, nil
	}

	return &LoginResult{User: service.touchLogin(context, user)}, nil
}

/*
CompleteTwoFactorLogin finishes a login opened by [Service.Login].

Description: An expired or unknown challenge is rejected and removed. A wrong
code leaves the challenge in place so the user can retry until it expires.
Success consumes the challenge.

Parameters:
  - context: context.Context
  - challengeToken: string
  - code: string (TOTP or backup code)

Returns:
  - *User: The logged-in account
  - err: Unauthorized, ACCOUNT_BANNED or internal failures
*/
func (service *Service) CompleteTwoFactorLogin(context context.Context, challengeToken, code string) (*User, error) {
	tokenHash := sec.HashToken(challengeToken)

	challenge, err := service.challengeRepository.Find(context, tokenHash)
	if err != nil {
		if isNotFound(err) {
			return nil, errInvalidChallenge
		}
		return nil, err
	}

	if challenge.Expired(service.now()) {
		_, _ = service.challengeRepository.Delete(context, tokenHash)
		return nil, errInvalidChallenge
	}

	user, err := service.userRepository.FindByID(context, challenge.UserID)
	if err != nil {
		if isNotFound(err) {
			_, _ = service.challengeRepository.Delete(context, tokenHash)
			return nil, errInvalidChallenge
		}
		return nil, err
	}

	if user.IsBanned {
		_, _ = service.challengeRepository.Delete(context, tokenHash)
		return nil, apperr.Banned(user.BannedReason)
	}

	// 2FA was disabled after the password step
	if !user.TwoFactorEnabled || service.secondFactor == nil {
		_, _ = service.challengeRepository.Delete(context, tokenHash)
		return nil, errInvalidChallenge
	}

	valid, err := service.secondFactor.VerifyLogin(context, user, code)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, errInvalidSecondFactor
	}

	// Only the request whose delete removed the challenge gets the session
	removed, err := service.challengeRepository.Delete(context, tokenHash)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, errInvalidChallenge
	}

	return service.touchLogin(context, user), nil
}

/*
FederatedLogin creates or refreshes the account of an identity-provider
subject and logs it in.

Parameters:
  - context: context.Context
  - identity: FederatedIdentity

Returns:
  - *User: The logged-in account
  - err: Conflict (email owned by another account), ACCOUNT_BANNED or storage errors
*/
func (service *Service) FederatedLogin(context context.Context, identity FederatedIdentity) (*User, error) {
	if identity.Subject == "" {
		return nil, apperr.Unauthorized("Identity provider returned no subject")
	}

	user, err := service.userRepository.Upsert(context, identity)
	if err != nil {
		return nil, err
	}

	if user.IsBanned {
		return nil, apperr.Banned(user.BannedReason)
	}

	return service.touchLogin(context, user), nil
}

// touchLogin stamps lastLoginAt. A failed stamp is logged and the stale user returned.
func (service *Service) touchLogin(context context.Context, user *User) *User {
	now := service.now().UTC()
	updated, err := service.userRepository.Update(context, user.ID, UserPatch{LastLoginAt: &now})
	if err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "last_login_update_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return user
	}
	return updated
}

// # Email Verification

/*
VerifyEmail consumes a verification token and marks the account verified.

Description: Every outstanding token of the user is dropped on success, so
each link works at most once.

Parameters:
  - context: context.Context
  - token: string (raw token from the link)

Returns:
  - *User: The verified account
  - err: Validation error for unknown or expired tokens
*/
func (service *Service) VerifyEmail(context context.Context, token string) (*User, error) {
	if token == "" {
		return nil, errInvalidVerification
	}
	tokenHash := sec.HashToken(token)

	record, err := service.verificationTokenRepository.FindByHash(context, tokenHash)
	if err != nil {
		if isNotFound(err) {
			return nil, errInvalidVerification
		}
		return nil, err
	}

	now := service.now().UTC()
	if now.After(record.ExpiresAt) {
		_ = service.verificationTokenRepository.Delete(context, tokenHash)
		return nil, errInvalidVerification
	}

	user, err := service.userRepository.Update(context, record.UserID, UserPatch{EmailVerifiedAt: &now})
	if err != nil {
		if isNotFound(err) {
			return nil, errInvalidVerification
		}
		return nil, err
	}

	if err := service.verificationTokenRepository.DeleteForUser(context, user.ID); err != nil {
		return nil, err
	}

	return user, nil
}

/*
ResendVerification replaces the user's outstanding tokens with a new one and
mails it.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - err: Validation error when already verified, or the delivery failure
*/
func (service *Service) ResendVerification(context context.Context, userID string) error {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	if user.EmailVerified() {
		return errEmailAlreadyVerified
	}
	if user.Email == "" {
		return apperr.ValidationError("Account has no email address")
	}

	if err := service.verificationTokenRepository.DeleteForUser(context, user.ID); err != nil {
		return err
	}

	if err := service.sendVerification(context, user, VerificationTypeResend); err != nil {
		return fmt.Errorf("auth_service_resend_failed: %w", err)
	}
	return nil
}

// # Identity Resolution

// CurrentUser returns the account bound to a session, or nil when it no longer exists.
func (service *Service) CurrentUser(context context.Context, userID string) (*User, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// LoadPrincipal reloads the authorization view of a user for every gated request.
func (service *Service) LoadPrincipal(context context.Context, userID string) (*sec.Principal, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}
	return user.Principal(), nil
}

// # Ownership

/*
ClaimOwner promotes the caller to owner when no owner exists yet.

Description: The check is advisory; the single-owner index makes a concurrent
second claim fail in storage.

Parameters:
  - context: context.Context
  - userID: string
  - ipAddress: string (recorded in the audit log)

Returns:
  - *User: The new owner
  - err: Forbidden when an owner already exists
*/
func (service *Service) ClaimOwner(context context.Context, userID, ipAddress string) (*User, error) {
	hasOwner, err := service.userRepository.HasOwner(context)
	if err != nil {
		return nil, err
	}
	if hasOwner {
		return nil, errOwnerAlreadyClaimed
	}

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}
	previousRole := user.Role

	updated, err := service.userRepository.UpdateRole(context, userID, sec.RoleOwner)
	if err != nil {
		return nil, err
	}

	if service.auditor != nil {
		service.auditor.Record(context, audit.Entry{
			ActorID:    updated.ID,
			ActorEmail: updated.Email,
			Action:     audit.ActionClaimOwner,
			TargetType: audit.TargetUser,
			TargetID:   updated.ID,
			Details:    map[string]any{"oldRole": string(previousRole), "newRole": string(sec.RoleOwner)},
			IPAddress:  ipAddress,
		})
	}

	return updated, nil
}

func isNotFound(err error) bool {
	var appErr *apperr.AppError
	return errors.As(err, &appErr) && appErr.HTTPStatus == http.StatusNotFound
}

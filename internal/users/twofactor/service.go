// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package twofactor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/ctxutil"
	"github.com/taibuivan/alphasource/internal/users/auth"
)

// maxBackupCodeAttempts bounds the compare-and-set retries of one backup code use.
const maxBackupCodeAttempts = 3

var (
	// ErrInvalidCode is returned for a wrong TOTP or backup code. It never
	// says which of the two was tried.
	ErrInvalidCode = apperr.Unauthorized("Invalid two-factor code")

	errBackupCodeContention = errors.New("twofactor_backup_code_contention")
)

// UserReader loads the live account row.
type UserReader interface {
	FindByID(ctx context.Context, id string) (*auth.User, error)
}

// Notifier sends the "2FA enabled" email.
type Notifier interface {
	SendTwoFactorEnabledEmail(ctx context.Context, to, firstName string) error
}

// Service implements the two-factor use cases.
type Service struct {
	users    UserReader
	store    Store
	engine   *Engine
	notifier Notifier
	now      func() time.Time
}

// NewService constructs a new [Service].
func NewService(users UserReader, store Store, engine *Engine, notifier Notifier) *Service {
	return &Service{users: users, store: store, engine: engine, notifier: notifier, now: time.Now}
}

// WithClock replaces the time source. Tests only.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

/*
Setup starts an enrollment for the user.

Description: The secret and hashed backup codes are stored but 2FA stays off
until [Service.Confirm]. Running setup again before confirming replaces the
pending material.

Parameters:
  - ctx: context.Context
  - userID: string

Returns:
  - *Enrollment: Secret, QR data URL and plain backup codes
  - error: apperr.Conflict when 2FA is already enabled
*/
func (service *Service) Setup(ctx context.Context, userID string) (*Enrollment, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, apperr.Conflict("Two-factor authentication is already enabled")
	}

	// Federated accounts may have no email; the authenticator label falls back to the id
	accountName := user.Email
	if accountName == "" {
		accountName = user.ID
	}

	enrollment, err := service.engine.Setup(accountName)
	if err != nil {
		return nil, err
	}

	if err := service.store.BeginSetup(ctx, user.ID, enrollment.Secret, enrollment.BackupHashes); err != nil {
		return nil, err
	}

	return enrollment, nil
}

/*
Confirm checks the first code from the authenticator app and enables 2FA.

Parameters:
  - ctx: context.Context
  - userID: string
  - code: string (6-digit TOTP)

Returns:
  - error: ErrInvalidCode, or a validation error when no setup is pending
*/
func (service *Service) Confirm(ctx context.Context, userID, code string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorEnabled {
		return apperr.Conflict("Two-factor authentication is already enabled")
	}
	if user.TwoFactorSecret == "" {
		return apperr.ValidationError("Two-factor setup has not been started")
	}

	if !VerifyCode(user.TwoFactorSecret, code, service.now()) {
		return ErrInvalidCode
	}

	// Enable only the secret the code was checked against
	if err := service.store.Enable(ctx, user.ID, user.TwoFactorSecret); err != nil {
		return err
	}

	if service.notifier != nil && user.Email != "" {
		if err := service.notifier.SendTwoFactorEnabledEmail(ctx, user.Email, user.FirstName); err != nil {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "twofactor_enabled_email_failed",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		}
	}

	return nil
}

// Disable turns 2FA off after a valid TOTP code. Backup codes are not accepted.
func (service *Service) Disable(ctx context.Context, userID, code string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return apperr.ValidationError("Two-factor authentication is not enabled")
	}

	if !VerifyCode(user.TwoFactorSecret, code, service.now()) {
		return ErrInvalidCode
	}

	return service.store.Disable(ctx, user.ID)
}

/*
VerifyLogin checks the second login step for user.

Description: The code is tried as TOTP first, then as a backup code. A
matched backup code is removed with a compare-and-set so two concurrent uses
cannot both succeed.

Parameters:
  - ctx: context.Context
  - user: *auth.User (freshly loaded)
  - code: string

Returns:
  - bool: Whether the code was accepted
  - error: Storage failures only
*/
func (service *Service) VerifyLogin(ctx context.Context, user *auth.User, code string) (bool, error) {
	if VerifyCode(user.TwoFactorSecret, code, service.now()) {
		return true, nil
	}

	stored := user.TwoFactorBackupCodes
	for attempt := 0; attempt < maxBackupCodeAttempts; attempt++ {
		if attempt > 0 {
			current, err := service.users.FindByID(ctx, user.ID)
			if err != nil {
				return false, err
			}
			stored = current.TwoFactorBackupCodes
		}

		matched, remaining := ConsumeBackupCode(stored, code)
		if !matched {
			return false, nil
		}

		swapped, err := service.store.ReplaceBackupCodes(ctx, user.ID, stored, remaining)
		if err != nil {
			return false, err
		}
		if swapped {
			return true, nil
		}
	}

	return false, errBackupCodeContention
}

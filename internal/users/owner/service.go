// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package owner implements the owner dashboard: user and staff listings, role
changes, bans and the audit log.

Every mutation is checked against the live target row and recorded through
the audit [audit.Recorder]. Routes are mounted behind the owner gate.
*/
package owner

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/audit"
	"github.com/taibuivan/alphasource/internal/platform/sec"
	"github.com/taibuivan/alphasource/internal/users/auth"
)

// BanReasonMaxLength caps the stored ban reason.
const BanReasonMaxLength = 500

// UserStore is the subset of the credential store the dashboard needs.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*auth.User, error)
	Update(ctx context.Context, id string, patch auth.UserPatch) (*auth.User, error)
	UpdateRole(ctx context.Context, id string, role sec.UserRole) (*auth.User, error)
	ListStaff(ctx context.Context) ([]*auth.User, error)
	List(ctx context.Context, filter auth.ListFilter) ([]*auth.User, int, error)
}

// AuditLog records and pages privileged actions.
type AuditLog interface {
	Record(ctx context.Context, entry audit.Entry)
	List(ctx context.Context, limit, offset int) ([]*audit.Entry, int, error)
}

// Actor identifies who performs a dashboard action.
type Actor struct {
	UserID    string
	Email     string
	IPAddress string
}

// Service implements the owner dashboard use cases.
type Service struct {
	users UserStore
	audit AuditLog
}

// NewService constructs a new [Service].
func NewService(users UserStore, auditLog AuditLog) *Service {
	return &Service{users: users, audit: auditLog}
}

// ListUsers returns one page of users, optionally filtered by role.
func (service *Service) ListUsers(ctx context.Context, filter auth.ListFilter) ([]*auth.User, int, error) {
	return service.users.List(ctx, filter)
}

// ListStaff returns the owner and staff accounts.
func (service *Service) ListStaff(ctx context.Context) ([]*auth.User, error) {
	return service.users.ListStaff(ctx)
}

// AuditLogs returns a newest-first page of the audit log.
func (service *Service) AuditLogs(ctx context.Context, limit, offset int) ([]*audit.Entry, int, error) {
	return service.audit.List(ctx, limit, offset)
}

// loadEditableTarget returns the target unless it is the actor or the owner.
func (service *Service) loadEditableTarget(ctx context.Context, actor Actor, targetID, selfMessage string) (*auth.User, error) {
	if targetID == actor.UserID {
		return nil, apperr.Forbidden(selfMessage)
	}

	target, err := service.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Role == sec.RoleOwner {
		return nil, apperr.Forbidden("The owner account cannot be modified")
	}
	return target, nil
}

/*
ChangeRole assigns "user" or "staff" to another account.

Description: Setting the current role again is a no-op and writes no audit
row. The change takes effect on the target's next request because gates
reload the live row.

Parameters:
  - ctx: context.Context
  - actor: Actor
  - targetID: string
  - role: sec.UserRole

Returns:
  - *auth.User: Target after the change
  - error: Validation, Forbidden or NotFound errors
*/
func (service *Service) ChangeRole(ctx context.Context, actor Actor, targetID string, role sec.UserRole) (*auth.User, error) {
	if role != sec.RoleUser && role != sec.RoleStaff {
		return nil, apperr.ValidationError("Role must be one of: user, staff")
	}

	target, err := service.loadEditableTarget(ctx, actor, targetID, "You cannot change your own role")
	if err != nil {
		return nil, err
	}
	if target.Role == role {
		return target, nil
	}

	updated, err := service.users.UpdateRole(ctx, target.ID, role)
	if err != nil {
		return nil, err
	}

	service.record(ctx, actor, audit.ActionChangeRole, target.ID, map[string]any{
		"oldRole": string(target.Role),
		"newRole": string(role),
	})

	return updated, nil
}

/*
Ban blocks an account with a visible reason.

Parameters:
  - ctx: context.Context
  - actor: Actor
  - targetID: string
  - reason: string (1..500 characters after trimming)

Returns:
  - *auth.User: The banned account
  - error: Validation, Forbidden or NotFound errors
*/
func (service *Service) Ban(ctx context.Context, actor Actor, targetID, reason string) (*auth.User, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" || utf8.RuneCountInString(reason) > BanReasonMaxLength {
		return nil, apperr.ValidationError("A ban reason of 1 to 500 characters is required")
	}

	target, err := service.loadEditableTarget(ctx, actor, targetID, "You cannot ban yourself")
	if err != nil {
		return nil, err
	}

	updated, err := service.users.Update(ctx, target.ID, auth.UserPatch{
		Ban: &auth.BanState{Banned: true, Reason: reason},
	})
	if err != nil {
		return nil, err
	}

	service.record(ctx, actor, audit.ActionBanUser, target.ID, map[string]any{"reason": reason})

	return updated, nil
}

// Unban lifts a ban and clears its reason.
func (service *Service) Unban(ctx context.Context, actor Actor, targetID string) (*auth.User, error) {
	target, err := service.loadEditableTarget(ctx, actor, targetID, "You cannot unban yourself")
	if err != nil {
		return nil, err
	}

	updated, err := service.users.Update(ctx, target.ID, auth.UserPatch{
		Ban: &auth.BanState{Banned: false},
	})
	if err != nil {
		return nil, err
	}

	service.record(ctx, actor, audit.ActionUnbanUser, target.ID, map[string]any{"previousReason": target.BannedReason})

	return updated, nil
}

func (service *Service) record(ctx context.Context, actor Actor, action, targetID string, details map[string]any) {
	service.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		ActorEmail: actor.Email,
		Action:     action,
		TargetType: audit.TargetUser,
		TargetID:   targetID,
		Details:    details,
		IPAddress:  actor.IPAddress,
	})
}

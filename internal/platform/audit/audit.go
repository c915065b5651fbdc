// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package audit records privileged state changes in an append-only log.

Every owner or staff gated mutation calls [Recorder.Record] once. Recording is
fire-and-forget: a storage failure is logged but never fails the action that
triggered it. The read side is a newest-first page for the owner dashboard.
*/
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/alphasource/internal/platform/ctxutil"
	"github.com/taibuivan/alphasource/pkg/uuid"
)

// # Actions

// Action names stored in the log. Content moderation actions are emitted by
// the catalog collaborators through the same [Recorder].
const (
	ActionChangeRole     = "change_role"
	ActionBanUser        = "ban_user"
	ActionUnbanUser      = "unban_user"
	ActionClaimOwner     = "claim_owner"
	ActionUpdateSettings = "update_settings"

	ActionDeleteCode           = "delete_code"
	ActionApproveCode          = "approve_code"
	ActionRejectCode           = "reject_code"
	ActionApproveAdvertisement = "approve_advertisement"
	ActionRejectAdvertisement  = "reject_advertisement"
	ActionDeleteAdvertisement  = "delete_advertisement"
)

// Target types.
const (
	TargetUser     = "user"
	TargetSettings = "settings"
)

// # Entities

// Entry is one row of the audit log.
type Entry struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actorId"`
	ActorEmail string         `json:"actorEmail"`
	Action     string         `json:"action"`
	TargetType string         `json:"targetType"`
	TargetID   string         `json:"targetId"`
	Details    map[string]any `json:"details"`
	IPAddress  string         `json:"ipAddress"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Store persists audit entries. Implementations only ever insert.
type Store interface {

	/*
		Append inserts a single entry.

		Parameters:
		  - context: context.Context
		  - entry: *Entry

		Returns:
		  - error: Persistence failures
	*/
	Append(context context.Context, entry *Entry) error

	/*
		List returns a newest-first page of entries and the total row count.

		Parameters:
		  - context: context.Context
		  - limit: int
		  - offset: int

		Returns:
		  - []*Entry: Page of entries
		  - int: Total entries
		  - error: Retrieval failures
	*/
	List(context context.Context, limit, offset int) ([]*Entry, int, error)
}

// # Recorder

// Recorder is the write and read facade over a [Store].
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder constructs a new [Recorder].
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Record appends entry, stamping its id and timestamp. Failures are logged
// with the request logger and swallowed.
func (recorder *Recorder) Record(ctx context.Context, entry Entry) {
	entry.ID = uuid.New()
	entry.CreatedAt = recorder.now().UTC()
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}

	if err := recorder.store.Append(ctx, &entry); err != nil {
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "audit_record_failed",
			slog.String("action", entry.Action),
			slog.String("actor_id", entry.ActorID),
			slog.String("target_id", entry.TargetID),
			slog.Any("error", err),
		)
	}
}

// List returns a newest-first page of the log.
func (recorder *Recorder) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	return recorder.store.List(ctx, limit, offset)
}

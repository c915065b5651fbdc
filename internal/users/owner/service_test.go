// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package owner_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/audit"
	"github.com/taibuivan/alphasource/internal/platform/sec"
	"github.com/taibuivan/alphasource/internal/users/auth"
	"github.com/taibuivan/alphasource/internal/users/auth/authtest"
	"github.com/taibuivan/alphasource/internal/users/owner"
)

type fixture struct {
	service *owner.Service
	users   *authtest.Users
	log     *authtest.AuditStore
	owner   *auth.User
	actor   owner.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := authtest.NewUsers()
	log := &authtest.AuditStore{}
	root := users.Put(&auth.User{Email: "owner@example.com", Role: sec.RoleOwner})

	return &fixture{
		service: owner.NewService(users, audit.NewRecorder(log)),
		users:   users,
		log:     log,
		owner:   root,
		actor:   owner.Actor{UserID: root.ID, Email: root.Email, IPAddress: "198.51.100.4"},
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	return appErr.HTTPStatus
}

func TestChangeRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := f.users.Put(&auth.User{Email: "member@example.com"})

	updated, err := f.service.ChangeRole(ctx, f.actor, member.ID, sec.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleStaff, updated.Role)

	entries := f.log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionChangeRole, entries[0].Action)
	assert.Equal(t, f.owner.ID, entries[0].ActorID)
	assert.Equal(t, member.ID, entries[0].TargetID)
	assert.Equal(t, audit.TargetUser, entries[0].TargetType)
	assert.Equal(t, "198.51.100.4", entries[0].IPAddress)
	assert.Equal(t, map[string]any{"oldRole": "user", "newRole": "staff"}, entries[0].Details)

	// Same role again writes nothing
	_, err = f.service.ChangeRole(ctx, f.actor, member.ID, sec.RoleStaff)
	require.NoError(t, err)
	assert.Len(t, f.log.Entries(), 1)
}

/*
TestChangeRole_Rejections lists every refusal of the role change.
*/
func TestChangeRole_Rejections(t *testing.T) {
	f := newFixture(t)
	member := f.users.Put(&auth.User{Email: "member@example.com"})

	tests := []struct {
		name     string
		targetID string
		role     sec.UserRole
		status   int
	}{
		{"promote_to_owner", member.ID, sec.RoleOwner, http.StatusBadRequest},
		{"unknown_role", member.ID, sec.UserRole("admin"), http.StatusBadRequest},
		{"self", f.owner.ID, sec.RoleStaff, http.StatusForbidden},
		{"missing_user", "missing", sec.RoleStaff, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.ChangeRole(context.Background(), f.actor, tt.targetID, tt.role)
			assert.Equal(t, tt.status, statusOf(t, err))
		})
	}

	assert.Empty(t, f.log.Entries())
}

func TestChangeRole_OwnerIsUntouchable(t *testing.T) {
	f := newFixture(t)
	staff := f.users.Put(&auth.User{Email: "staff@example.com", Role: sec.RoleStaff})
	staffActor := owner.Actor{UserID: staff.ID, Email: staff.Email}

	_, err := f.service.ChangeRole(context.Background(), staffActor, f.owner.ID, sec.RoleUser)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
	assert.Equal(t, sec.RoleOwner, f.users.Get(f.owner.ID).Role)
}

/*
TestBanAndUnban bans a staff member and lifts the ban, checking both audit rows.
*/
func TestBanAndUnban(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.users.Put(&auth.User{Email: "staff@example.com", Role: sec.RoleStaff})

	banned, err := f.service.Ban(ctx, f.actor, staff.ID, "  posting spam  ")
	require.NoError(t, err)
	assert.True(t, banned.IsBanned)
	assert.Equal(t, "posting spam", banned.BannedReason)

	unbanned, err := f.service.Unban(ctx, f.actor, staff.ID)
	require.NoError(t, err)
	assert.False(t, unbanned.IsBanned)
	assert.Empty(t, unbanned.BannedReason)

	entries := f.log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, audit.ActionBanUser, entries[0].Action)
	assert.Equal(t, "posting spam", entries[0].Details["reason"])
	assert.Equal(t, audit.ActionUnbanUser, entries[1].Action)
	assert.Equal(t, "posting spam", entries[1].Details["previousReason"])
}

func TestBan_Validation(t *testing.T) {
	f := newFixture(t)
	member := f.users.Put(&auth.User{Email: "member@example.com"})

	_, err := f.service.Ban(context.Background(), f.actor, member.ID, "   ")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = f.service.Ban(context.Background(), f.actor, member.ID, strings.Repeat("x", owner.BanReasonMaxLength+1))
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = f.service.Ban(context.Background(), f.actor, f.owner.ID, "nope")
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	assert.False(t, f.users.Get(member.ID).IsBanned)
}

func TestListStaffAndUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.users.Put(&auth.User{Email: "staff@example.com", Role: sec.RoleStaff})
	f.users.Put(&auth.User{Email: "member@example.com"})

	staff, err := f.service.ListStaff(ctx)
	require.NoError(t, err)
	require.Len(t, staff, 2)
	assert.Equal(t, sec.RoleOwner, staff[0].Role)

	users, total, err := f.service.ListUsers(ctx, auth.ListFilter{Roles: []sec.UserRole{sec.RoleUser}, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "member@example.com", users[0].Email)

	all, total, err := f.service.ListUsers(ctx, auth.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 2)
}

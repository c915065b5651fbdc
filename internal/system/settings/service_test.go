// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package settings_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/alphasource/internal/platform/audit"
	"github.com/taibuivan/alphasource/internal/system/settings"
	"github.com/taibuivan/alphasource/internal/users/auth/authtest"
	"github.com/taibuivan/alphasource/pkg/pointer"
)

// memoryStore keeps raw values in a map and remembers the last writer.
type memoryStore struct {
	mu        sync.Mutex
	values    map[string]json.RawMessage
	updatedBy string
	saves     int
	loadErr   error
}

func (store *memoryStore) Load(context.Context) (map[string]json.RawMessage, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.loadErr != nil {
		return nil, store.loadErr
	}
	copied := make(map[string]json.RawMessage, len(store.values))
	for key, value := range store.values {
		copied[key] = value
	}
	return copied, nil
}

func (store *memoryStore) Save(_ context.Context, values map[string]json.RawMessage, updatedBy string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.values == nil {
		store.values = map[string]json.RawMessage{}
	}
	for key, value := range values {
		store.values[key] = value
	}
	store.updatedBy = updatedBy
	store.saves++
	return nil
}

func newService(t *testing.T, store settings.Store, log *authtest.AuditStore) *settings.Service {
	t.Helper()
	service, err := settings.NewService(store, audit.NewRecorder(log), time.Minute)
	require.NoError(t, err)
	t.Cleanup(service.Close)
	return service
}

func TestGet_Defaults(t *testing.T) {
	service := newService(t, &memoryStore{}, &authtest.AuditStore{})

	current, err := service.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), current)

	open, err := service.RegistrationOpen(context.Background())
	require.NoError(t, err)
	assert.True(t, open)
}

func TestGet_StoredValuesOverlayDefaults(t *testing.T) {
	store := &memoryStore{values: map[string]json.RawMessage{
		settings.KeyMaintenanceMode:    json.RawMessage(`true`),
		settings.KeyMaintenanceMessage: json.RawMessage(`"Back at noon"`),
		"legacyKey":                    json.RawMessage(`{"ignored":true}`),
	}}
	service := newService(t, store, &authtest.AuditStore{})

	enabled, message, err := service.Maintenance(context.Background())
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, "Back at noon", message)

	open, err := service.RegistrationOpen(context.Background())
	require.NoError(t, err)
	assert.True(t, open)
}

func TestGet_CorruptValue(t *testing.T) {
	store := &memoryStore{values: map[string]json.RawMessage{
		settings.KeyRegistrationOpen: json.RawMessage(`"yes"`),
	}}
	service := newService(t, store, &authtest.AuditStore{})

	_, err := service.Get(context.Background())
	assert.Error(t, err)
}

func TestGet_StoreFailure(t *testing.T) {
	service := newService(t, &memoryStore{loadErr: errors.New("db down")}, &authtest.AuditStore{})

	_, _, err := service.Maintenance(context.Background())
	assert.Error(t, err)
}

/*
TestUpdate writes only changed keys, audits them and is visible to the next
read without waiting for the cache TTL.
*/
func TestUpdate(t *testing.T) {
	store := &memoryStore{}
	log := &authtest.AuditStore{}
	service := newService(t, store, log)
	ctx := context.Background()

	// Prime the cache with the defaults
	_, err := service.Get(ctx)
	require.NoError(t, err)

	actor := settings.Actor{UserID: "owner-1", Email: "owner@example.com", IPAddress: "192.0.2.1"}
	updated, err := service.Update(ctx, actor, settings.Patch{
		RegistrationOpen: pointer.To(false),
		MaintenanceMode:  pointer.To(false),
	})
	require.NoError(t, err)
	assert.False(t, updated.RegistrationOpen)

	assert.Equal(t, "owner-1", store.updatedBy)
	assert.JSONEq(t, `false`, string(store.values[settings.KeyRegistrationOpen]))
	assert.NotContains(t, store.values, settings.KeyMaintenanceMode)

	open, err := service.RegistrationOpen(ctx)
	require.NoError(t, err)
	assert.False(t, open)

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionUpdateSettings, entries[0].Action)
	assert.Equal(t, audit.TargetSettings, entries[0].TargetType)
	assert.Equal(t, map[string]any{settings.KeyRegistrationOpen: false}, entries[0].Details)
}

func TestUpdate_NoChange(t *testing.T) {
	store := &memoryStore{}
	log := &authtest.AuditStore{}
	service := newService(t, store, log)

	current, err := service.Update(context.Background(), settings.Actor{UserID: "owner-1"}, settings.Patch{
		RegistrationOpen: pointer.To(true),
	})
	require.NoError(t, err)
	assert.True(t, current.RegistrationOpen)
	assert.Zero(t, store.saves)
	assert.Empty(t, log.Entries())
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/taibuivan/alphasource/internal/platform/audit"
)

// cacheKey is the single entry holding the decoded settings.
const cacheKey = "site"

// AuditRecorder appends privileged actions to the audit log.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Actor identifies the owner changing settings.
type Actor struct {
	UserID    string
	Email     string
	IPAddress string
}

// Service reads and updates site settings through a short-lived cache.
type Service struct {
	store   Store
	auditor AuditRecorder
	cache   *ristretto.Cache[string, Settings]
	ttl     time.Duration
}

// NewService constructs a new [Service]. ttl bounds how stale a read may be.
func NewService(store Store, auditor AuditRecorder, ttl time.Duration) (*Service, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, Settings]{
		NumCounters:        100,
		MaxCost:            10,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("settings_cache_init_failed: %w", err)
	}

	return &Service{store: store, auditor: auditor, cache: cache, ttl: ttl}, nil
}

// Close releases the cache goroutines.
func (service *Service) Close() {
	service.cache.Close()
}

// Get returns the current settings, from cache when fresh.
func (service *Service) Get(ctx context.Context) (Settings, error) {
	if cached, ok := service.cache.Get(cacheKey); ok {
		return cached, nil
	}
	return service.load(ctx)
}

func (service *Service) load(ctx context.Context) (Settings, error) {
	raw, err := service.store.Load(ctx)
	if err != nil {
		return Settings{}, err
	}

	current, err := decode(raw)
	if err != nil {
		return Settings{}, fmt.Errorf("settings_decode_failed: %w", err)
	}

	service.cache.SetWithTTL(cacheKey, current, 1, service.ttl)
	return current, nil
}

// RegistrationOpen reports whether password signups are accepted.
func (service *Service) RegistrationOpen(ctx context.Context) (bool, error) {
	current, err := service.Get(ctx)
	if err != nil {
		return false, err
	}
	return current.RegistrationOpen, nil
}

// Maintenance reports the maintenance switch and its banner.
func (service *Service) Maintenance(ctx context.Context) (bool, string, error) {
	current, err := service.Get(ctx)
	if err != nil {
		return false, "", err
	}
	return current.MaintenanceMode, current.MaintenanceMessage, nil
}

/*
Update applies patch and records the changed keys.

Description: Reads bypass the cache so the diff is taken against storage.
Nothing is written or audited when no value changes.

Parameters:
  - ctx: context.Context
  - actor: Actor
  - patch: Patch

Returns:
  - Settings: The settings after the update
  - error: Storage failures
*/
func (service *Service) Update(ctx context.Context, actor Actor, patch Patch) (Settings, error) {
	raw, err := service.store.Load(ctx)
	if err != nil {
		return Settings{}, err
	}
	current, err := decode(raw)
	if err != nil {
		return Settings{}, fmt.Errorf("settings_decode_failed: %w", err)
	}

	next := current
	changed := map[string]any{}
	if patch.RegistrationOpen != nil && *patch.RegistrationOpen != current.RegistrationOpen {
		next.RegistrationOpen = *patch.RegistrationOpen
		changed[KeyRegistrationOpen] = next.RegistrationOpen
	}
	if patch.MaintenanceMode != nil && *patch.MaintenanceMode != current.MaintenanceMode {
		next.MaintenanceMode = *patch.MaintenanceMode
		changed[KeyMaintenanceMode] = next.MaintenanceMode
	}
	if patch.MaintenanceMessage != nil && *patch.MaintenanceMessage != current.MaintenanceMessage {
		next.MaintenanceMessage = *patch.MaintenanceMessage
		changed[KeyMaintenanceMessage] = next.MaintenanceMessage
	}

	if len(changed) == 0 {
		return current, nil
	}

	values := make(map[string]json.RawMessage, len(changed))
	for key, value := range changed {
		encoded, err := json.Marshal(value)
		if err != nil {
			return Settings{}, fmt.Errorf("settings_encode_failed: %w", err)
		}
		values[key] = encoded
	}

	if err := service.store.Save(ctx, values, actor.UserID); err != nil {
		return Settings{}, err
	}

	// Flush pending sets so a stale value cannot land after the new one
	service.cache.Wait()
	service.cache.SetWithTTL(cacheKey, next, 1, service.ttl)
	service.cache.Wait()

	if service.auditor != nil {
		service.auditor.Record(ctx, audit.Entry{
			ActorID:    actor.UserID,
			ActorEmail: actor.Email,
			Action:     audit.ActionUpdateSettings,
			TargetType: audit.TargetSettings,
			TargetID:   cacheKey,
			Details:    changed,
			IPAddress:  actor.IPAddress,
		})
	}

	return next, nil
}

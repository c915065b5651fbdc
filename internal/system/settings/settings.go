// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package settings manages the owner-editable site switches: open registration
and maintenance mode.

Values live in system.setting as one JSON value per key and are cached in
process for a short TTL. Role and ban data are never cached here.
*/
package settings

import (
	"context"
	"encoding/json"
)

// Setting keys as stored in system.setting.
const (
	KeyRegistrationOpen   = "registrationOpen"
	KeyMaintenanceMode    = "maintenanceMode"
	KeyMaintenanceMessage = "maintenanceMessage"
)

// MaintenanceMessageMaxLength caps the owner supplied banner text.
const MaintenanceMessageMaxLength = 500

// Settings is the decoded site configuration.
type Settings struct {
	RegistrationOpen   bool   `json:"registrationOpen"`
	MaintenanceMode    bool   `json:"maintenanceMode"`
	MaintenanceMessage string `json:"maintenanceMessage"`
}

// Defaults applies when a key is missing from storage.
func Defaults() Settings {
	return Settings{RegistrationOpen: true}
}

// Patch lists the fields of a partial update. Nil means unchanged.
type Patch struct {
	RegistrationOpen   *bool   `json:"registrationOpen"`
	MaintenanceMode    *bool   `json:"maintenanceMode"`
	MaintenanceMessage *string `json:"maintenanceMessage"`
}

// Store persists raw JSON values by key.
type Store interface {
	Load(ctx context.Context) (map[string]json.RawMessage, error)

	// Save upserts every value in one transaction.
	Save(ctx context.Context, values map[string]json.RawMessage, updatedBy string) error
}

// decode overlays stored values on the defaults. Unknown keys are ignored.
func decode(raw map[string]json.RawMessage) (Settings, error) {
	current := Defaults()
	targets := map[string]any{
		KeyRegistrationOpen:   &current.RegistrationOpen,
		KeyMaintenanceMode:    &current.MaintenanceMode,
		KeyMaintenanceMessage: &current.MaintenanceMessage,
	}

	for key, target := range targets {
		value, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, target); err != nil {
			return Settings{}, err
		}
	}
	return current, nil
}

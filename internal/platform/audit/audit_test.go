// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/alphasource/internal/platform/audit"
)

type memoryStore struct {
	entries []*audit.Entry
	err     error
}

func (store *memoryStore) Append(_ context.Context, entry *audit.Entry) error {
	if store.err != nil {
		return store.err
	}
	store.entries = append(store.entries, entry)
	return nil
}

func (store *memoryStore) List(_ context.Context, limit, offset int) ([]*audit.Entry, int, error) {
	return store.entries, len(store.entries), nil
}

/*
TestRecorder_Record verifies that ids, timestamps and empty details are filled in.
*/
func TestRecorder_Record(t *testing.T) {
	store := &memoryStore{}
	recorder := audit.NewRecorder(store)

	recorder.Record(context.Background(), audit.Entry{
		ActorID:    "owner-1",
		Action:     audit.ActionUnbanUser,
		TargetType: audit.TargetUser,
		TargetID:   "user-1",
	})

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NotNil(t, entry.Details)
	assert.Equal(t, "unban_user", entry.Action)
}

/*
TestRecorder_Record_Failure verifies that storage failures never propagate.
*/
func TestRecorder_Record_Failure(t *testing.T) {
	recorder := audit.NewRecorder(&memoryStore{err: errors.New("disk full")})

	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), audit.Entry{Action: audit.ActionBanUser})
	})
}

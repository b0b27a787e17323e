package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/anthropics/memsync/internal/document"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "local.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	mem := "mem-1"
	err := s.PutSession(ctx, document.Session{
		ContentSessionID: "c1",
		MemorySessionID:  &mem,
		Project:          "P",
		StartedAt:        "2026-01-01T00:00:00Z",
		StartedAtEpoch:   1000,
		Status:           "active",
	})
	require.NoError(t, err)

	got, found, err := s.SessionByContentID(ctx, "c1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "P", got.Project)
	require.NotNil(t, got.MemorySessionID)
	require.Equal(t, "mem-1", *got.MemorySessionID)

	byMem, found, err := s.SessionByMemoryID(ctx, "mem-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "c1", byMem.ContentSessionID)

	_, found, err = s.SessionByContentID(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)
}

func TestPromptLeftFillsProjectWhenSessionMissing(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	err := s.PutPrompt(ctx, document.Prompt{ContentSessionID: "orphan", PromptNumber: 1, PromptText: "hi", CreatedAtEpoch: 5})
	require.NoError(t, err)

	got, found, err := s.PromptByID(ctx, "orphan", 1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "", got.Project)
	require.Equal(t, "hi", got.PromptText)
}

func TestObservationsSinceFiltersByEpoch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutObservation(ctx, document.Observation{MemorySessionID: "m1", CreatedAtEpoch: 10}))
	require.NoError(t, s.PutObservation(ctx, document.Observation{MemorySessionID: "m1", CreatedAtEpoch: 20}))

	recent, err := s.ObservationsSince(ctx, 15)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, int64(20), recent[0].CreatedAtEpoch)

	all, err := s.AllObservations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

package syncengine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/anthropics/memsync/internal/backend"
	"github.com/anthropics/memsync/internal/document"
	"github.com/anthropics/memsync/internal/localstore"
	"github.com/anthropics/memsync/internal/state"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *localstore.Store, *backend.MemoryBackend) {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	mem := backend.NewMemoryBackend(backend.Config{Provider: "fake", Endpoint: "e", Database: "d", Container: "c"})
	st := state.Open(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())

	e, err := New(Options{Backend: mem, Store: store, State: st, SyncIntervalMs: 30000, Log: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, store, mem
}

func strp(s string) *string { return &s }

func TestBootstrapAndImport(t *testing.T) {
	ctx := context.Background()
	e, store, mem := newTestEngine(t)

	require.NoError(t, store.PutSession(ctx, document.Session{
		ContentSessionID: "local-c", MemorySessionID: strp("local-m"), Project: "P",
		StartedAt: "t", StartedAtEpoch: 100, Status: "active",
	}))
	require.NoError(t, store.PutPrompt(ctx, document.Prompt{ContentSessionID: "local-c", PromptNumber: 1, PromptText: "hi", CreatedAtEpoch: 110}))
	require.NoError(t, store.PutObservation(ctx, document.Observation{MemorySessionID: "local-m", Text: "obs", Type: "note", CreatedAtEpoch: 120}))
	require.NoError(t, store.PutSummary(ctx, document.Summary{MemorySessionID: "local-m", Text: "sum", CreatedAtEpoch: 130}))

	remoteSession := document.BuildSessionDocument(document.Session{
		ContentSessionID: "remote-c", MemorySessionID: strp("remote-m"), Project: "RP",
		StartedAtEpoch: 200, Status: "active",
	}, 0)
	remotePrompt := document.BuildPromptDocument(document.Prompt{ContentSessionID: "remote-c", PromptNumber: 1, PromptText: "yo", CreatedAtEpoch: 210})
	remoteObsDoc, err := document.BuildObservationDocument(document.Observation{MemorySessionID: "remote-m", Text: "robs", CreatedAtEpoch: 220})
	require.NoError(t, err)
	remoteSummaryDoc, err := document.BuildSummaryDocument(document.Summary{MemorySessionID: "remote-m", Text: "rsum", CreatedAtEpoch: 230})
	require.NoError(t, err)
	mem.Seed(remoteSession, remotePrompt, remoteObsDoc, remoteSummaryDoc)

	e.Bootstrap()
	e.Flush()

	require.Equal(t, 4, mem.Count(), "remote must hold both local and already-seeded documents")

	_, found, err := store.SessionByContentID(ctx, "remote-c")
	require.NoError(t, err)
	require.True(t, found)

	_, found, err = store.PromptByID(ctx, "remote-c", 1)
	require.NoError(t, err)
	require.True(t, found)
}

func TestPiggybackPropagatesMemorySessionID(t *testing.T) {
	ctx := context.Background()
	e, store, mem := newTestEngine(t)

	require.NoError(t, store.PutSession(ctx, document.Session{
		ContentSessionID: "pc", StartedAtEpoch: 10, Status: "active",
	}))
	require.NoError(t, store.PutPrompt(ctx, document.Prompt{ContentSessionID: "pc", PromptNumber: 1, PromptText: "hi", CreatedAtEpoch: 11}))

	e.ScheduleUserPromptSync("pc", 1)
	e.Flush()

	sessionDoc, ok := mem.Lookup(document.SessionID("pc"))
	require.True(t, ok)
	sess := sessionDoc.Payload.(document.Session)
	require.Nil(t, sess.MemorySessionID)

	require.NoError(t, store.SetMemorySessionID(ctx, "pc", "pm"))
	require.NoError(t, store.PutObservation(ctx, document.Observation{MemorySessionID: "pm", Text: "obs", CreatedAtEpoch: 500}))

	obsRow, found, err := lastObservation(ctx, store)
	require.NoError(t, err)
	require.True(t, found)

	e.ScheduleObservationSync("pm", obsRow)
	e.Flush()

	sessionDoc, ok = mem.Lookup(document.SessionID("pc"))
	require.True(t, ok)
	sess = sessionDoc.Payload.(document.Session)
	require.NotNil(t, sess.MemorySessionID)
	require.Equal(t, "pm", *sess.MemorySessionID)
	require.Equal(t, int64(500), sessionDoc.UpdatedAtEpoch)
}

func TestBackendTransientFailureLeavesCursorsUnchanged(t *testing.T) {
	ctx := context.Background()
	e, store, mem := newTestEngine(t)

	require.NoError(t, store.PutSession(ctx, document.Session{ContentSessionID: "c1", StartedAtEpoch: 10, Status: "active"}))
	require.NoError(t, store.PutPrompt(ctx, document.Prompt{ContentSessionID: "c1", PromptNumber: 1, PromptText: "hi", CreatedAtEpoch: 11}))

	mem.FailNextUpsert()
	e.ScheduleUserPromptSync("c1", 1)
	e.Flush()

	fp := mem.TargetFingerprint()
	ts := e.state.Get(fp)
	require.Equal(t, int64(0), ts.LastLocalPushEpoch)

	e.ScheduleUserPromptSync("c1", 1)
	e.Flush()

	ts = e.state.Get(fp)
	require.Greater(t, ts.LastLocalPushEpoch, int64(0))
}

func TestIntervalTimerRunsWithoutExplicitSchedule(t *testing.T) {
	ctx := context.Background()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	defer store.Close()

	mem := backend.NewMemoryBackend(backend.Config{Provider: "fake", Endpoint: "e", Database: "d", Container: "c"})
	st := state.Open(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())

	e, err := New(Options{Backend: mem, Store: store, State: st, SyncIntervalMs: 50, Log: zerolog.Nop()})
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, store.PutSession(ctx, document.Session{ContentSessionID: "c1", StartedAtEpoch: 10, Status: "active"}))
	require.NoError(t, store.PutPrompt(ctx, document.Prompt{ContentSessionID: "c1", PromptNumber: 1, PromptText: "hi", CreatedAtEpoch: 11}))

	e.Start()
	time.Sleep(200 * time.Millisecond)
	e.Flush()

	require.Greater(t, mem.Count(), 0)
}

func lastObservation(ctx context.Context, store *localstore.Store) (document.Observation, bool, error) {
	rows, err := store.AllObservations(ctx)
	if err != nil || len(rows) == 0 {
		return document.Observation{}, false, err
	}
	return rows[len(rows)-1], true, nil
}

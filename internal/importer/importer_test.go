package importer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/anthropics/memsync/internal/document"
	"github.com/anthropics/memsync/internal/localstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestImporter(t *testing.T) (*Importer, *localstore.Store) {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store.DB(), zerolog.Nop()), store
}

func sessionDoc(t *testing.T, contentID string, memID *string) document.Document {
	t.Helper()
	return document.BuildSessionDocument(document.Session{
		ContentSessionID: contentID,
		MemorySessionID:  memID,
		Project:          "P",
		StartedAt:        "t0",
		StartedAtEpoch:   100,
		Status:           "active",
	}, 0)
}

func TestImportInsertsNewSession(t *testing.T) {
	ctx := context.Background()
	im, store := newTestImporter(t)

	n, err := im.ImportBatch(ctx, []document.Document{sessionDoc(t, "remote-c", strPtr("remote-m"))})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, found, err := store.SessionByContentID(ctx, "remote-c")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "remote-m", *got.MemorySessionID)
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	im, _ := newTestImporter(t)

	batch := []document.Document{sessionDoc(t, "c1", strPtr("m1"))}

	n1, err := im.ImportBatch(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 1, n1)

	n2, err := im.ImportBatch(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 0, n2, "re-importing the same batch must write zero rows")
}

func TestImportPromptSkippedWithoutSession(t *testing.T) {
	ctx := context.Background()
	im, store := newTestImporter(t)

	doc := document.BuildPromptDocument(document.Prompt{ContentSessionID: "ghost", PromptNumber: 1, PromptText: "hi", CreatedAtEpoch: 5})
	n, err := im.ImportBatch(ctx, []document.Document{doc})
	require.NoError(t, err)
	require.Equal(t, 0, n)

	_, found, err := store.PromptByID(ctx, "ghost", 1)
	require.NoError(t, err)
	require.False(t, found)
}

func TestImportPromptAppliedAfterSessionInSameBatch(t *testing.T) {
	ctx := context.Background()
	im, store := newTestImporter(t)

	// Submitted out of order: prompt before its session. The importer must
	// re-establish kind ordering before applying.
	promptDoc := document.BuildPromptDocument(document.Prompt{ContentSessionID: "c1", PromptNumber: 1, PromptText: "hi", CreatedAtEpoch: 5})
	sessDoc := sessionDoc(t, "c1", nil)

	n, err := im.ImportBatch(ctx, []document.Document{promptDoc, sessDoc})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, found, err := store.PromptByID(ctx, "c1", 1)
	require.NoError(t, err)
	require.True(t, found)
}

func TestDuplicatePromptReplayIncrementsOnce(t *testing.T) {
	ctx := context.Background()
	im, store := newTestImporter(t)

	sess := sessionDoc(t, "c1", nil)
	_, err := im.ImportBatch(ctx, []document.Document{sess})
	require.NoError(t, err)

	promptDoc := document.BuildPromptDocument(document.Prompt{ContentSessionID: "c1", PromptNumber: 1, PromptText: "hi", CreatedAtEpoch: 5})

	_, err = im.ImportBatch(ctx, []document.Document{promptDoc})
	require.NoError(t, err)
	_, err = im.ImportBatch(ctx, []document.Document{promptDoc})
	require.NoError(t, err)

	rows, err := store.AllPrompts(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestConflictingMemorySessionIDKeepsExistingBinding(t *testing.T) {
	ctx := context.Background()
	im, store := newTestImporter(t)

	// Local session A already binds mem=X.
	_, err := im.ImportBatch(ctx, []document.Document{sessionDoc(t, "A", strPtr("X"))})
	require.NoError(t, err)

	// Remote session B also claims mem=X.
	n, err := im.ImportBatch(ctx, []document.Document{sessionDoc(t, "B", strPtr("X"))})
	require.NoError(t, err)
	require.Equal(t, 1, n, "session B is still inserted, just without the conflicting memory id")

	a, found, err := store.SessionByContentID(ctx, "A")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "X", *a.MemorySessionID)

	b, found, err := store.SessionByContentID(ctx, "B")
	require.NoError(t, err)
	require.True(t, found)
	require.Nil(t, b.MemorySessionID)
}

func strPtr(s string) *string { return &s }

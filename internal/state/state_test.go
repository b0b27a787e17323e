package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := Open(path, zerolog.Nop())
	require.Equal(t, TargetState{}, s.Get("nonexistent"))
}

func TestPutAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := Open(path, zerolog.Nop())

	ts := TargetState{BootstrapComplete: true, LastLocalPushEpoch: 10, LastPullEpoch: 20}
	require.NoError(t, s.Put("fp1", ts))

	reopened := Open(path, zerolog.Nop())
	require.Equal(t, ts, reopened.Get("fp1"))
}

func TestCorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o644))

	s := Open(path, zerolog.Nop())
	require.Equal(t, TargetState{}, s.Get("fp1"))
}

func TestVersionMismatchTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":2,"targets":{"fp1":{"bootstrapComplete":true}}}`), 0o644))

	s := Open(path, zerolog.Nop())
	require.Equal(t, TargetState{}, s.Get("fp1"))
}

func TestReloadPicksUpExternalEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := Open(path, zerolog.Nop())
	require.NoError(t, s.Put("fp1", TargetState{BootstrapComplete: true, LastLocalPushEpoch: 10}))

	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"targets":{"fp1":{"bootstrapComplete":false,"lastLocalPushEpoch":0,"lastPullEpoch":0}}}`), 0o644))

	s.Reload()
	require.Equal(t, TargetState{}, s.Get("fp1"))
}

func TestWatchExternalChangesInvokesCallbackOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := Open(path, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	require.NoError(t, s.WatchExternalChanges(ctx, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}))

	require.NoError(t, s.Put("fp1", TargetState{BootstrapComplete: true}))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected onChange to fire after state file write")
	}
}

package config

import (
	"path/filepath"
	"testing"

	"github.com/anthropics/memsync/internal/backend"
	"github.com/anthropics/memsync/internal/localstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestGateDisabledWhenRemoteFlagFalse(t *testing.T) {
	store, err := localstore.Open(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	defer store.Close()

	registry := backend.NewRegistry()
	engine, err := Gate(Settings{}, registry, store, filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
	require.NoError(t, err)
	require.Nil(t, engine)
}

func TestGateDisabledWhenProviderUnknown(t *testing.T) {
	store, err := localstore.Open(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	defer store.Close()

	registry := backend.NewRegistry()
	settings := Settings{
		KeyRemoteEnabled: "true",
		KeyProvider:      "does-not-exist",
		KeyEndpoint:      "https://example.invalid",
	}
	engine, err := Gate(settings, registry, store, filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
	require.NoError(t, err)
	require.Nil(t, engine)
}

func TestGateBuildsEngineWhenProviderKnown(t *testing.T) {
	store, err := localstore.Open(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	defer store.Close()

	registry := backend.NewRegistry()
	registry.Register("fake", func(cfg backend.Config) (backend.Backend, error) {
		return backend.NewMemoryBackend(cfg), nil
	})

	settings := Settings{
		KeyRemoteEnabled:  "true",
		KeyProvider:       "fake",
		KeyEndpoint:       "https://example.invalid",
		KeySyncIntervalMs: "5000",
	}
	engine, err := Gate(settings, registry, store, filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, engine)
	require.NoError(t, engine.Close())
}

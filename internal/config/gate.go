package config

import (
	"github.com/anthropics/memsync/internal/backend"
	"github.com/anthropics/memsync/internal/localstore"
	"github.com/anthropics/memsync/internal/state"
	"github.com/anthropics/memsync/internal/syncengine"
	"github.com/rs/zerolog"
)

// Gate constructs a sync engine from settings and a backend registry, or
// returns (nil, nil) — "disabled". The engine must never prevent the
// host process from running on the local store alone: every failure path
// here is logged and returns disabled rather than an error the caller is
// forced to propagate.
func Gate(settings Settings, registry *backend.Registry, store *localstore.Store, statePath string, log zerolog.Logger) (*syncengine.Engine, error) {
	if !settings.GetBool(KeyRemoteEnabled) {
		log.Info().Msg("remote sync disabled by configuration")
		return nil, nil
	}

	provider := settings.Get(KeyProvider)
	if provider == "" {
		log.Warn().Msg("remote sync enabled but no provider tag configured; disabling")
		return nil, nil
	}

	cfg := backend.Config{
		Provider:  provider,
		Endpoint:  settings.Get(KeyEndpoint),
		Database:  settings.GetStringDefault(KeyDatabase, defaultDatabase),
		Container: settings.GetStringDefault(KeyContainer, defaultContainer),
		Credentials: map[string]string{
			"accountKey": settings.Get(KeyAccountKey),
		},
	}

	b, err := registry.Build(cfg)
	if err != nil {
		log.Warn().Err(err).Str("provider", provider).Msg("unknown provider; disabling remote sync")
		return nil, nil
	}

	intervalMs := settings.GetIntDefault(KeySyncIntervalMs, defaultIntervalMs)

	st := state.Open(statePath, log)

	engine, err := syncengine.New(syncengine.Options{
		Backend:        b,
		Store:          store,
		State:          st,
		SyncIntervalMs: intervalMs,
		Log:            log,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to construct sync engine; disabling")
		return nil, nil
	}

	return engine, nil
}

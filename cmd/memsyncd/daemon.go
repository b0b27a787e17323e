package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/memsync/internal/syncengine"
	"github.com/rs/zerolog"
)

// runDaemon bootstraps the sync engine (if remote sync is enabled), starts
// its periodic timer, and blocks until an interrupt or terminate signal
// arrives, mirroring the chat interface's own signal handling.
func runDaemon(engine *syncengine.Engine, log zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if engine == nil {
		log.Info().Msg("no sync engine configured; memsyncd is a no-op until remote sync is enabled")
		<-sigCh
		return
	}

	engine.Bootstrap()
	engine.Start()
	log.Info().Msg("sync engine started")

	<-sigCh
	log.Info().Msg("shutting down, draining pending sync tasks")
	if err := engine.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing sync engine")
	}
}

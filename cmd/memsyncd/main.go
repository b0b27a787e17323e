// memsyncd - bidirectional memory sync daemon
// Reconciles a local conversational-memory store with a shared remote
// document store, running either as a background daemon or as an
// interactive operator console.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthropics/memsync/internal/backend"
	"github.com/anthropics/memsync/internal/backend/azurecosmos"
	"github.com/anthropics/memsync/internal/config"
	"github.com/anthropics/memsync/internal/localstore"
	"github.com/rs/zerolog"
)

const version = "0.1.0"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version")
		dbPath      = flag.String("db", "", "Local memory store path (default: auto-generated in .memsync/)")
		statePath   = flag.String("state", "", "Sync cursor file path (default: auto-generated in .memsync/)")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		console     = flag.Bool("console", false, "Start the interactive operator console instead of the daemon loop")

		provider   = flag.String("provider", "", "Backend provider tag (e.g. azure-cosmos)")
		endpoint   = flag.String("endpoint", "", "Backend endpoint")
		database   = flag.String("database", "", "Backend database name")
		container  = flag.String("container", "", "Backend container name")
		intervalMs = flag.Int("interval-ms", 0, "Periodic sync interval in milliseconds")
		remote     = flag.Bool("remote", false, "Enable remote sync")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `memsyncd v%s - bidirectional memory sync daemon

Usage: memsyncd [options]

Options:
`, version)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  memsyncd --remote --provider azure-cosmos --endpoint https://acct.documents.azure.com:443
  memsyncd --console --remote --provider azure-cosmos --endpoint https://acct.documents.azure.com:443

Environment Variables:
  AZURE_COSMOS_ACCOUNT_KEY   Cosmos DB account key (falls back to azidentity default credential)

For more info: https://github.com/anthropics/memsync
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("memsyncd v%s\n", version)
		return
	}

	logLevel := zerolog.InfoLevel
	if *debug {
		logLevel = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(logLevel).With().Timestamp().Logger()

	if *dbPath == "" {
		*dbPath = defaultPath(".memsync", "local.db")
	}
	if *statePath == "" {
		*statePath = defaultPath(".memsync", "state.json")
	}

	store, err := localstore.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open local store")
	}
	defer store.Close()

	registry := backend.NewRegistry()
	registry.Register("azure-cosmos", azurecosmos.New)

	settings := config.Settings{
		config.KeyRemoteEnabled:  boolString(*remote),
		config.KeyProvider:       *provider,
		config.KeyEndpoint:       *endpoint,
		config.KeyDatabase:       *database,
		config.KeyContainer:      *container,
		config.KeySyncIntervalMs: intString(*intervalMs),
		config.KeyAccountKey:     os.Getenv("AZURE_COSMOS_ACCOUNT_KEY"),
	}

	engine, err := config.Gate(settings, registry, store, *statePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("construct sync engine")
	}
	if engine == nil {
		log.Warn().Msg("remote sync disabled; memsyncd will idle on the local store only")
	}

	if *console {
		c, err := newConsole(store, engine, log)
		if err != nil {
			log.Fatal().Err(err).Msg("start console")
		}
		defer c.close()
		if err := c.run(); err != nil {
			log.Fatal().Err(err).Msg("console")
		}
		return
	}

	runDaemon(engine, log)
}

func defaultPath(dir, file string) string {
	_ = os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, file)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func intString(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", n)
}

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/anthropics/memsync/internal/localstore"
	"github.com/anthropics/memsync/internal/syncengine"
	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
)

// console is the interactive operator surface: a small set of commands for
// inspecting and driving the sync engine by hand, grounded on the chat
// interface's readline loop but scoped to operator actions rather than
// conversation.
type console struct {
	store  *localstore.Store
	engine *syncengine.Engine
	log    zerolog.Logger
	rl     *readline.Instance
	ctx    context.Context
}

func newConsole(store *localstore.Store, engine *syncengine.Engine, log zerolog.Logger) (*console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36mmemsync>\033[0m ",
		HistoryFile:     ".memsync/console_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("readline: %w", err)
	}
	return &console{store: store, engine: engine, log: log, rl: rl, ctx: context.Background()}, nil
}

func (c *console) close() {
	c.rl.Close()
}

func (c *console) run() error {
	c.printWelcome()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := c.handle(line); err != nil {
			fmt.Printf("\033[31merror: %v\033[0m\n", err)
		}
		if line == "exit" || line == "quit" {
			return nil
		}
	}
}

func (c *console) handle(line string) error {
	switch line {
	case "help":
		c.printHelp()
	case "status":
		return c.showStatus()
	case "bootstrap":
		if c.engine == nil {
			return fmt.Errorf("remote sync disabled")
		}
		c.engine.Bootstrap()
		c.engine.Flush()
		fmt.Println("\033[32mbootstrap cycle complete\033[0m")
	case "sync":
		if c.engine == nil {
			return fmt.Errorf("remote sync disabled")
		}
		c.engine.SyncNow()
		c.engine.Flush()
		fmt.Println("\033[32msync cycle complete\033[0m")
	case "targets":
		return c.showTargets()
	case "exit", "quit":
		fmt.Println("\033[33mgoodbye\033[0m")
	default:
		fmt.Printf("unrecognized command %q; type 'help' for a list\n", line)
	}
	return nil
}

func (c *console) showStatus() error {
	sessions, err := c.store.AllSessions(c.ctx)
	if err != nil {
		return err
	}
	prompts, err := c.store.AllPrompts(c.ctx)
	if err != nil {
		return err
	}
	observations, err := c.store.AllObservations(c.ctx)
	if err != nil {
		return err
	}
	summaries, err := c.store.AllSummaries(c.ctx)
	if err != nil {
		return err
	}

	fmt.Println("\n\033[33mLocal store:\033[0m")
	fmt.Printf("  sessions:     %d\n", len(sessions))
	fmt.Printf("  prompts:      %d\n", len(prompts))
	fmt.Printf("  observations: %d\n", len(observations))
	fmt.Printf("  summaries:    %d\n", len(summaries))

	if c.engine == nil {
		fmt.Println("\n\033[33mremote sync: disabled\033[0m")
	} else {
		fmt.Println("\n\033[32mremote sync: enabled\033[0m")
	}
	return nil
}

func (c *console) showTargets() error {
	if c.engine == nil {
		fmt.Println("\033[33mno remote target configured\033[0m")
		return nil
	}
	fmt.Println("\n\033[33mConfigured target:\033[0m")
	fmt.Printf("  %s\n", c.engine.BackendLabel())
	return nil
}

func (c *console) printWelcome() {
	fmt.Println()
	fmt.Println("\033[36mmemsyncd operator console\033[0m")
	if c.engine == nil {
		fmt.Println("\033[33mremote sync is disabled; status is read-only\033[0m")
	}
	fmt.Println("Type 'help' for commands.")
	fmt.Println()
}

func (c *console) printHelp() {
	fmt.Print(`
` + "\033[33mCommands:\033[0m" + `
  help       - Show this help
  status     - Show local store counts and remote sync state
  bootstrap  - Run a cycle with bootstrap (skipped if already complete)
  sync       - Run a manual sync cycle now
  targets    - Show the configured remote target
  exit       - Exit the console
`)
}

// Package state persists per-target sync cursors to a single versioned
// JSON file keyed by backend fingerprint.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// CurrentVersion is the only file version this package writes or accepts.
const CurrentVersion = 1

// TargetState is the durable cursor for one backend fingerprint.
type TargetState struct {
	BootstrapComplete  bool  `json:"bootstrapComplete"`
	LastLocalPushEpoch int64 `json:"lastLocalPushEpoch"`
	LastPullEpoch      int64 `json:"lastPullEpoch"`
}

type fileFormat struct {
	Version int                    `json:"version"`
	Targets map[string]TargetState `json:"targets"`
}

// Store is a file-backed map of fingerprint -> TargetState, safe for
// concurrent use by a single process (the task queue already serializes
// sync work; Store's own mutex guards the rarer case of a concurrent
// operator-console read).
type Store struct {
	path string
	log  zerolog.Logger

	mu      sync.Mutex
	targets map[string]TargetState
}

// Open loads path if present or starts from an empty map. A missing,
// unreadable, or version-mismatched file is never an error: it is logged
// at warn and treated as empty.
func Open(path string, log zerolog.Logger) *Store {
	s := &Store{path: path, log: log, targets: make(map[string]TargetState)}
	s.load()
	return s
}

func (s *Store) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Warn().Str("path", s.path).Msg("state file missing, starting empty")
		} else {
			s.log.Warn().Err(err).Str("path", s.path).Msg("state file unreadable, starting empty")
		}
		return
	}

	var ff fileFormat
	if err := json.Unmarshal(raw, &ff); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("state file corrupt, starting empty")
		return
	}
	if ff.Version != CurrentVersion {
		s.log.Warn().Int("version", ff.Version).Msg("state file version mismatch, starting empty")
		return
	}
	if ff.Targets != nil {
		s.targets = ff.Targets
	}
}

// Get returns the state for fingerprint, or the zero value if absent.
func (s *Store) Get(fingerprint string) TargetState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets[fingerprint]
}

// Reload re-reads the state file from disk, discarding the in-memory map
// in favor of whatever is currently on disk. Used by WatchExternalChanges
// callers after an operator hand-edits or deletes the cursor file.
func (s *Store) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = make(map[string]TargetState)
	s.load()
}

// Put sets the state for fingerprint and persists the whole file.
func (s *Store) Put(fingerprint string, ts TargetState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[fingerprint] = ts
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	ff := fileFormat{Version: CurrentVersion, Targets: s.targets}
	body, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return err
	}
	body = append(body, '\n')

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	// Best-effort atomicity: write to a sibling temp file and rename. A
	// crash between these two steps leaves either the old file intact or
	// a stray temp file; it never leaves a half-written state file, and a
	// truncated read is tolerated as "empty" by load() regardless.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

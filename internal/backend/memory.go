package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/anthropics/memsync/internal/document"
)

// MemoryBackend is an in-process Backend used by tests to exercise the
// sync orchestrator and importer without a live remote store. It is not
// wired into the provider registry used by the configuration gate —
// production only ever dispatches to internal/backend/azurecosmos — but
// implements the exact contract a real backend must.
type MemoryBackend struct {
	label       string
	fingerprint string

	mu   sync.Mutex
	docs map[string]document.Document

	failNextUpsert bool
}

// NewMemoryBackend builds a MemoryBackend identified by cfg.
func NewMemoryBackend(cfg Config) *MemoryBackend {
	fp, _ := Fingerprint(Target{Provider: cfg.Provider, Endpoint: cfg.Endpoint, Database: cfg.Database, Container: cfg.Container})
	return &MemoryBackend{
		label:       fmt.Sprintf("%s/%s/%s", cfg.Provider, cfg.Database, cfg.Container),
		fingerprint: fp,
		docs:        make(map[string]document.Document),
	}
}

// FailNextUpsert arranges for the next UpsertDocuments call to return an
// error, simulating a transient backend failure.
func (m *MemoryBackend) FailNextUpsert() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNextUpsert = true
}

func (m *MemoryBackend) Initialize(ctx context.Context) error { return nil }

func (m *MemoryBackend) UpsertDocuments(ctx context.Context, docs []document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNextUpsert {
		m.failNextUpsert = false
		return fmt.Errorf("memory backend: simulated transient failure")
	}

	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return nil
}

func (m *MemoryBackend) FetchDocumentsUpdatedSince(ctx context.Context, epoch int64) ([]document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]document.Document, 0)
	for _, d := range m.docs {
		if d.UpdatedAtEpoch > epoch {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAtEpoch != out[j].UpdatedAtEpoch {
			return out[i].UpdatedAtEpoch < out[j].UpdatedAtEpoch
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryBackend) Close(ctx context.Context) error { return nil }

func (m *MemoryBackend) Label() string { return m.label }

func (m *MemoryBackend) TargetFingerprint() string { return m.fingerprint }

// Seed directly installs documents as if a peer had already pushed them —
// used by tests to set up "remote already contains X" fixtures.
func (m *MemoryBackend) Seed(docs ...document.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.docs[d.ID] = d
	}
}

// Count returns the number of distinct document ids currently stored.
func (m *MemoryBackend) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// Lookup returns the document currently stored under id, used by tests to
// assert on pushed payloads directly.
func (m *MemoryBackend) Lookup(id string) (document.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	return d, ok
}

var _ Backend = (*MemoryBackend)(nil)

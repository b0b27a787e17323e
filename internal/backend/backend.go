// Package backend defines the narrow contract a remote document store must
// satisfy to be driven by the sync engine, and the fingerprint/registry
// machinery for selecting a concrete implementation by provider tag.
package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/anthropics/memsync/internal/document"
)

// Backend is the contract the engine drives. All operations fail with a
// plain transport/availability error; the engine never distinguishes
// provider-specific codes.
type Backend interface {
	// Initialize is idempotent: it ensures the remote container exists and
	// is ready to receive upserts partitioned by document kind.
	Initialize(ctx context.Context) error

	// UpsertDocuments writes each document by its id; last writer wins. Must
	// be safe to call with already-seen ids.
	UpsertDocuments(ctx context.Context, docs []document.Document) error

	// FetchDocumentsUpdatedSince returns all documents with
	// updatedAtEpoch > epoch, ascending by updatedAtEpoch. May return more
	// than strictly new; the importer's dedup handles the overlap.
	FetchDocumentsUpdatedSince(ctx context.Context, epoch int64) ([]document.Document, error)

	// Close releases remote resources. Optional; safe to call once.
	Close(ctx context.Context) error

	// Label is a human-readable identity used in logs.
	Label() string

	// TargetFingerprint is the stable identity used as the state file key.
	TargetFingerprint() string
}

// Target identifies a (provider, endpoint, database, container) tuple.
// Fingerprint hashes over exactly these four fields, in this field order,
// so rotating any of them resets the cursor for that target without
// disturbing others.
type Target struct {
	Provider  string `json:"provider"`
	Endpoint  string `json:"endpoint"`
	Database  string `json:"database"`
	Container string `json:"container"`
}

// Fingerprint returns the sha256 hex of the canonical JSON of t.
func Fingerprint(t Target) (string, error) {
	canon, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("canonicalize target: %w", err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// Package importer merges a batch of remote documents into the local
// store inside one atomic transaction, enforcing the referential and
// uniqueness invariants of the local relational schema.
package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/anthropics/memsync/internal/document"
	"github.com/rs/zerolog"
)

// kindOrder is the order documents are applied within a batch: sessions
// first, then prompts, then observations, then summaries, so that a
// session document in the same batch is available before anything that
// references it.
var kindOrder = map[document.Kind]int{
	document.KindSession:     0,
	document.KindPrompt:      1,
	document.KindObservation: 2,
	document.KindSummary:     3,
}

// Importer runs the merge transaction against a *sql.DB.
type Importer struct {
	db  *sql.DB
	log zerolog.Logger
}

// New builds an Importer over db.
func New(db *sql.DB, log zerolog.Logger) *Importer {
	return &Importer{db: db, log: log}
}

// ImportBatch merges docs into the local store inside one transaction and
// returns the number of rows actually written (inserted or updated).
func (im *Importer) ImportBatch(ctx context.Context, docs []document.Document) (int, error) {
	ordered := make([]document.Document, len(docs))
	copy(ordered, docs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return kindOrder[ordered[i].Kind] < kindOrder[ordered[j].Kind]
	})

	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("importer: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	written := 0
	for _, d := range ordered {
		var (
			changed bool
			applyErr error
		)
		switch d.Kind {
		case document.KindSession:
			changed, applyErr = im.applySession(ctx, tx, d)
		case document.KindPrompt:
			changed, applyErr = im.applyPrompt(ctx, tx, d)
		case document.KindObservation:
			changed, applyErr = im.applyObservation(ctx, tx, d)
		case document.KindSummary:
			changed, applyErr = im.applySummary(ctx, tx, d)
		default:
			im.log.Warn().Str("id", d.ID).Str("kind", string(d.Kind)).Msg("unknown document kind, skipping")
			continue
		}
		if applyErr != nil {
			return 0, fmt.Errorf("importer: apply %s: %w", d.ID, applyErr)
		}
		if changed {
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("importer: commit: %w", err)
	}
	return written, nil
}

// decodePayload re-marshals a document's generic payload into dst. Remote
// payloads arrive as map[string]interface{} after JSON decoding at the
// backend boundary; this round-trips them into the typed struct.
func decodePayload(payload any, dst any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

package importer

import (
	"context"
	"database/sql"

	"github.com/anthropics/memsync/internal/document"
)

// applySummary is the same shape as applyObservation, with its own dedup
// key: (memory_session_id, created_at_epoch, prompt_number).
func (im *Importer) applySummary(ctx context.Context, tx *sql.Tx, d document.Document) (bool, error) {
	var incoming document.Summary
	if err := decodePayload(d.Payload, &incoming); err != nil {
		return false, err
	}

	_, sessionFound, err := sessionOwnerOfMemoryID(ctx, tx, incoming.MemorySessionID)
	if err != nil {
		return false, err
	}
	if !sessionFound {
		im.log.Warn().
			Str("memory_session_id", incoming.MemorySessionID).
			Msg("summary references a session not found locally; skipping")
		return false, nil
	}

	var exists int
	err = tx.QueryRowContext(ctx, `
		SELECT 1 FROM summaries
		WHERE memory_session_id = ? AND created_at_epoch = ? AND COALESCE(prompt_number, -1) = COALESCE(?, -1)`,
		incoming.MemorySessionID, incoming.CreatedAtEpoch, incoming.PromptNumber).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO summaries (memory_session_id, text, title, narrative, concepts, prompt_number,
			discovery_tokens, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		incoming.MemorySessionID, incoming.Text, incoming.Title, incoming.Narrative, incoming.Concepts,
		incoming.PromptNumber, incoming.DiscoveryTokens, incoming.CreatedAt, incoming.CreatedAtEpoch)
	if err != nil {
		return false, err
	}
	return true, nil
}

package importer

import (
	"context"
	"database/sql"

	"github.com/anthropics/memsync/internal/document"
)

// applyObservation verifies the owning session exists by
// memory_session_id, skipping with a warning otherwise; then dedups by
// (memory_session_id, created_at_epoch, type, title, narrative) and
// inserts only if not already present.
func (im *Importer) applyObservation(ctx context.Context, tx *sql.Tx, d document.Document) (bool, error) {
	var incoming document.Observation
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
			Str("title", incoming.Title).
			Msg("observation references a session not found locally; skipping")
		return false, nil
	}

	var exists int
	err = tx.QueryRowContext(ctx, `
		SELECT 1 FROM observations
		WHERE memory_session_id = ? AND created_at_epoch = ? AND type = ?
			AND COALESCE(title,'') = COALESCE(?,'') AND COALESCE(narrative,'') = COALESCE(?,'')`,
		incoming.MemorySessionID, incoming.CreatedAtEpoch, incoming.Type, incoming.Title, incoming.Narrative).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO observations (memory_session_id, text, type, title, subtitle, facts, narrative,
			concepts, files_read, files_modified, prompt_number, discovery_tokens, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		incoming.MemorySessionID, incoming.Text, incoming.Type, incoming.Title, incoming.Subtitle,
		incoming.Facts, incoming.Narrative, incoming.Concepts, incoming.FilesRead, incoming.FilesModified,
		incoming.PromptNumber, incoming.DiscoveryTokens,
		incoming.CreatedAt, incoming.CreatedAtEpoch)
	if err != nil {
		return false, err
	}
	return true, nil
}

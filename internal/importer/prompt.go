package importer

import (
	"context"
	"database/sql"

	"github.com/anthropics/memsync/internal/document"
)

// applyPrompt implements the prompt merge rule: a prompt is immutable
// after creation, so an existing row is a no-op; a missing owning session
// causes the document to be skipped with a warning rather than creating a
// phantom session.
func (im *Importer) applyPrompt(ctx context.Context, tx *sql.Tx, d document.Document) (bool, error) {
	var incoming document.Prompt
	if err := decodePayload(d.Payload, &incoming); err != nil {
		return false, err
	}

	var exists int
	err := tx.QueryRowContext(ctx, `
		SELECT 1 FROM user_prompts WHERE content_session_id = ? AND prompt_number = ?`,
		incoming.ContentSessionID, incoming.PromptNumber).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, err
	}

	_, sessionFound, err := sessionByContentID(ctx, tx, incoming.ContentSessionID)
	if err != nil {
		return false, err
	}
	if !sessionFound {
		im.log.Warn().
			Str("content_session_id", incoming.ContentSessionID).
			Int("prompt_number", incoming.PromptNumber).
			Msg("prompt references a session not found locally; skipping")
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_prompts (content_session_id, prompt_number, prompt_text, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?)`,
		incoming.ContentSessionID, incoming.PromptNumber, incoming.PromptText, incoming.CreatedAt, incoming.CreatedAtEpoch)
	if err != nil {
		return false, err
	}
	return true, nil
}

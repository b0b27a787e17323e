package localstore

import (
	"context"

	"github.com/anthropics/memsync/internal/document"
)

// Writers here are the host application's own capture path — unrelated to
// the importer's merge transaction, and exercised mainly by tests seeding a
// local store to drive the sync engine end to end.

// PutSession inserts or replaces a session row wholesale.
func (s *Store) PutSession(ctx context.Context, row document.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (content_session_id, memory_session_id, project, user_prompt, custom_title,
			started_at, started_at_epoch, completed_at, completed_at_epoch, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_session_id) DO UPDATE SET
			memory_session_id = excluded.memory_session_id,
			project = excluded.project,
			user_prompt = excluded.user_prompt,
			custom_title = excluded.custom_title,
			started_at = excluded.started_at,
			started_at_epoch = excluded.started_at_epoch,
			completed_at = excluded.completed_at,
			completed_at_epoch = excluded.completed_at_epoch,
			status = excluded.status
	`, row.ContentSessionID, row.MemorySessionID, row.Project, row.UserPrompt, row.CustomTitle,
		row.StartedAt, row.StartedAtEpoch, row.CompletedAt, row.CompletedAtEpoch, row.Status)
	return err
}

// SetMemorySessionID assigns the secondary identity once it becomes known.
func (s *Store) SetMemorySessionID(ctx context.Context, contentSessionID, memorySessionID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET memory_session_id = ? WHERE content_session_id = ?`,
		memorySessionID, contentSessionID)
	return err
}

// PutPrompt inserts a prompt row (immutable after creation, per the data model).
func (s *Store) PutPrompt(ctx context.Context, row document.Prompt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_prompts (content_session_id, prompt_number, prompt_text, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?)
	`, row.ContentSessionID, row.PromptNumber, row.PromptText, row.CreatedAt, row.CreatedAtEpoch)
	return err
}

// PutObservation inserts an observation row.
func (s *Store) PutObservation(ctx context.Context, row document.Observation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO observations (memory_session_id, text, type, title, subtitle, facts, narrative,
			concepts, files_read, files_modified, prompt_number, discovery_tokens, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.MemorySessionID, row.Text, row.Type, row.Title, row.Subtitle, row.Facts, row.Narrative,
		row.Concepts, row.FilesRead, row.FilesModified, row.PromptNumber, row.DiscoveryTokens,
		row.CreatedAt, row.CreatedAtEpoch)
	return err
}

// PutSummary inserts a summary row.
func (s *Store) PutSummary(ctx context.Context, row document.Summary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries (memory_session_id, text, title, narrative, concepts, prompt_number,
			discovery_tokens, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.MemorySessionID, row.Text, row.Title, row.Narrative, row.Concepts, row.PromptNumber,
		row.DiscoveryTokens, row.CreatedAt, row.CreatedAtEpoch)
	return err
}

package importer

import (
	"context"
	"database/sql"

	"github.com/anthropics/memsync/internal/document"
)

var statusPriority = map[string]int{
	"active":    0,
	"failed":    1,
	"completed": 2,
}

// applySession implements the session field-wise merge rules and the
// memory_session_id conflict policy. It returns whether a row was
// actually inserted or changed.
func (im *Importer) applySession(ctx context.Context, tx *sql.Tx, d document.Document) (bool, error) {
	var incoming document.Session
	if err := decodePayload(d.Payload, &incoming); err != nil {
		return false, err
	}

	existing, found, err := sessionByContentID(ctx, tx, incoming.ContentSessionID)
	if err != nil {
		return false, err
	}

	if !found {
		resolvedMemID, err := im.resolveMemorySessionID(ctx, tx, incoming.ContentSessionID, incoming.MemorySessionID, nil)
		if err != nil {
			return false, err
		}
		row := incoming
		row.MemorySessionID = resolvedMemID
		if err := insertSession(ctx, tx, row); err != nil {
			return false, err
		}
		return true, nil
	}

	merged := existing
	changed := false

	resolvedMemID, err := im.resolveMemorySessionID(ctx, tx, incoming.ContentSessionID, incoming.MemorySessionID, existing.MemorySessionID)
	if err != nil {
		return false, err
	}
	if !stringPtrEqual(resolvedMemID, existing.MemorySessionID) {
		merged.MemorySessionID = resolvedMemID
		changed = true
	}

	if incoming.Project != "" && incoming.Project != merged.Project {
		merged.Project = incoming.Project
		changed = true
	}
	if incoming.UserPrompt != "" && incoming.UserPrompt != merged.UserPrompt {
		merged.UserPrompt = incoming.UserPrompt
		changed = true
	}

	if incoming.CustomTitle != nil && !stringPtrEqual(incoming.CustomTitle, merged.CustomTitle) {
		merged.CustomTitle = incoming.CustomTitle
		changed = true
	}

	// started_at / started_at_epoch: prefer existing if non-zero/non-empty,
	// else new — started is monotone and authoritative on the earliest writer.
	if merged.StartedAtEpoch == 0 && incoming.StartedAtEpoch != 0 {
		merged.StartedAtEpoch = incoming.StartedAtEpoch
		changed = true
	}
	if merged.StartedAt == "" && incoming.StartedAt != "" {
		merged.StartedAt = incoming.StartedAt
		changed = true
	}

	if incoming.CompletedAt != nil && !stringPtrEqual(incoming.CompletedAt, merged.CompletedAt) {
		merged.CompletedAt = incoming.CompletedAt
		changed = true
	}
	if incoming.CompletedAtEpoch != 0 && incoming.CompletedAtEpoch != merged.CompletedAtEpoch {
		merged.CompletedAtEpoch = incoming.CompletedAtEpoch
		changed = true
	}

	if incoming.Status != "" {
		incomingPriority, incomingKnown := statusPriority[incoming.Status]
		currentPriority, currentKnown := statusPriority[merged.Status]
		if incomingKnown && (!currentKnown || incomingPriority >= currentPriority) && incoming.Status != merged.Status {
			merged.Status = incoming.Status
			changed = true
		}
	}

	if !changed {
		return false, nil
	}
	if err := updateSession(ctx, tx, merged); err != nil {
		return false, err
	}
	return true, nil
}

// resolveMemorySessionID: if incoming is nil, the existing local value is
// kept. Otherwise, if the memory_session_id is already bound to a
// *different* content_session_id, the conflict is logged and the existing
// local binding (or nil) is kept unchanged.
func (im *Importer) resolveMemorySessionID(ctx context.Context, tx *sql.Tx, contentSessionID string, incoming, existingLocal *string) (*string, error) {
	if incoming == nil {
		return existingLocal, nil
	}

	owner, found, err := sessionOwnerOfMemoryID(ctx, tx, *incoming)
	if err != nil {
		return nil, err
	}
	if found && owner != contentSessionID {
		im.log.Warn().
			Str("memory_session_id", *incoming).
			Str("incoming_content_session_id", contentSessionID).
			Str("existing_content_session_id", owner).
			Msg("memory_session_id already bound to a different session; keeping existing binding")
		return existingLocal, nil
	}
	return incoming, nil
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sessionByContentID(ctx context.Context, tx *sql.Tx, contentSessionID string) (document.Session, bool, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT content_session_id, memory_session_id, project, user_prompt, custom_title,
			started_at, started_at_epoch, completed_at, completed_at_epoch, status
		FROM sessions WHERE content_session_id = ?`, contentSessionID)
	return scanSessionRow(row)
}

func sessionOwnerOfMemoryID(ctx context.Context, tx *sql.Tx, memorySessionID string) (string, bool, error) {
	var owner string
	err := tx.QueryRowContext(ctx, `SELECT content_session_id FROM sessions WHERE memory_session_id = ?`, memorySessionID).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return owner, true, nil
}

func scanSessionRow(row *sql.Row) (document.Session, bool, error) {
	var s document.Session
	var memoryID, customTitle, completedAt sql.NullString
	var completedAtEpoch sql.NullInt64
	err := row.Scan(&s.ContentSessionID, &memoryID, &s.Project, &s.UserPrompt, &customTitle,
		&s.StartedAt, &s.StartedAtEpoch, &completedAt, &completedAtEpoch, &s.Status)
	if err == sql.ErrNoRows {
		return document.Session{}, false, nil
	}
	if err != nil {
		return document.Session{}, false, err
	}
	if memoryID.Valid {
		s.MemorySessionID = &memoryID.String
	}
	if customTitle.Valid {
		s.CustomTitle = &customTitle.String
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.String
	}
	if completedAtEpoch.Valid {
		s.CompletedAtEpoch = completedAtEpoch.Int64
	}
	return s, true, nil
}

func insertSession(ctx context.Context, tx *sql.Tx, row document.Session) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (content_session_id, memory_session_id, project, user_prompt, custom_title,
			started_at, started_at_epoch, completed_at, completed_at_epoch, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ContentSessionID, row.MemorySessionID, row.Project, row.UserPrompt, row.CustomTitle,
		row.StartedAt, row.StartedAtEpoch, row.CompletedAt, row.CompletedAtEpoch, row.Status)
	return err
}

func updateSession(ctx context.Context, tx *sql.Tx, row document.Session) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE sessions SET memory_session_id = ?, project = ?, user_prompt = ?, custom_title = ?,
			started_at = ?, started_at_epoch = ?, completed_at = ?, completed_at_epoch = ?, status = ?
		WHERE content_session_id = ?`,
		row.MemorySessionID, row.Project, row.UserPrompt, row.CustomTitle,
		row.StartedAt, row.StartedAtEpoch, row.CompletedAt, row.CompletedAtEpoch, row.Status,
		row.ContentSessionID)
	return err
}

package localstore

import (
	"context"
	"database/sql"

	"github.com/anthropics/memsync/internal/document"
)

// Readers are read-only queries over the local store: full scans and
// since-epoch scans for each record kind, plus by-id lookups. They never
// write; writes go through the importer's transaction or the host-capture
// writers in writers.go.

func scanSession(row interface {
	Scan(dest ...any) error
}) (document.Session, error) {
	var s document.Session
	var memoryID, customTitle, completedAt sql.NullString
	var completedAtEpoch sql.NullInt64
	if err := row.Scan(&s.ContentSessionID, &memoryID, &s.Project, &s.UserPrompt, &customTitle,
		&s.StartedAt, &s.StartedAtEpoch, &completedAt, &completedAtEpoch, &s.Status); err != nil {
		return document.Session{}, err
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
	return s, nil
}

const sessionColumns = `content_session_id, memory_session_id, project, user_prompt, custom_title,
	started_at, started_at_epoch, completed_at, completed_at_epoch, status`

// AllSessions returns every session ordered by started_at_epoch ascending.
func (s *Store) AllSessions(ctx context.Context) ([]document.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY started_at_epoch ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []document.Session
	for rows.Next() {
		row, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SessionsSince returns sessions whose started_at_epoch >= since.
func (s *Store) SessionsSince(ctx context.Context, since int64) ([]document.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE started_at_epoch >= ? ORDER BY started_at_epoch ASC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []document.Session
	for rows.Next() {
		row, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SessionByContentID returns at most one session by content_session_id.
func (s *Store) SessionByContentID(ctx context.Context, contentSessionID string) (document.Session, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE content_session_id = ?`, contentSessionID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return document.Session{}, false, nil
	}
	if err != nil {
		return document.Session{}, false, err
	}
	return sess, true, nil
}

// SessionByMemoryID returns at most one session by memory_session_id.
func (s *Store) SessionByMemoryID(ctx context.Context, memorySessionID string) (document.Session, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE memory_session_id = ?`, memorySessionID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return document.Session{}, false, nil
	}
	if err != nil {
		return document.Session{}, false, err
	}
	return sess, true, nil
}

func scanPrompt(row interface{ Scan(dest ...any) error }) (document.Prompt, error) {
	var p document.Prompt
	var project sql.NullString
	if err := row.Scan(&p.ContentSessionID, &p.PromptNumber, &project, &p.PromptText, &p.CreatedAt, &p.CreatedAtEpoch); err != nil {
		return document.Prompt{}, err
	}
	p.Project = project.String
	return p, nil
}

const promptSelect = `
SELECT up.content_session_id, up.prompt_number, COALESCE(s.project, ''), up.prompt_text, up.created_at, up.created_at_epoch
FROM user_prompts up LEFT JOIN sessions s ON s.content_session_id = up.content_session_id`

// AllPrompts returns every prompt ordered by created_at_epoch ascending,
// left-filling project with "" when no local session is found.
func (s *Store) AllPrompts(ctx context.Context) ([]document.Prompt, error) {
	rows, err := s.db.QueryContext(ctx, promptSelect+` ORDER BY up.created_at_epoch ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []document.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PromptsSince returns prompts with created_at_epoch >= since.
func (s *Store) PromptsSince(ctx context.Context, since int64) ([]document.Prompt, error) {
	rows, err := s.db.QueryContext(ctx, promptSelect+` WHERE up.created_at_epoch >= ? ORDER BY up.created_at_epoch ASC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []document.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PromptByID returns at most one prompt by (content_session_id, prompt_number).
func (s *Store) PromptByID(ctx context.Context, contentSessionID string, promptNumber int) (document.Prompt, bool, error) {
	row := s.db.QueryRowContext(ctx, promptSelect+` WHERE up.content_session_id = ? AND up.prompt_number = ?`, contentSessionID, promptNumber)
	p, err := scanPrompt(row)
	if err == sql.ErrNoRows {
		return document.Prompt{}, false, nil
	}
	if err != nil {
		return document.Prompt{}, false, err
	}
	return p, true, nil
}

func scanObservation(row interface{ Scan(dest ...any) error }) (document.Observation, error) {
	var o document.Observation
	var project, title, subtitle, facts, narrative, concepts, filesRead, filesModified sql.NullString
	var promptNumber sql.NullInt64
	if err := row.Scan(&o.MemorySessionID, &project, &o.Text, &o.Type, &title, &subtitle, &facts,
		&narrative, &concepts, &filesRead, &filesModified, &promptNumber, &o.DiscoveryTokens,
		&o.CreatedAt, &o.CreatedAtEpoch); err != nil {
		return document.Observation{}, err
	}
	o.Project = project.String
	o.Title = title.String
	o.Subtitle = subtitle.String
	o.Facts = facts.String
	o.Narrative = narrative.String
	o.Concepts = concepts.String
	o.FilesRead = filesRead.String
	o.FilesModified = filesModified.String
	if promptNumber.Valid {
		n := int(promptNumber.Int64)
		o.PromptNumber = &n
	}
	return o, nil
}

const observationSelect = `
SELECT ob.memory_session_id, COALESCE(s.project, ''), ob.text, ob.type, ob.title, ob.subtitle, ob.facts,
	ob.narrative, ob.concepts, ob.files_read, ob.files_modified, ob.prompt_number, ob.discovery_tokens,
	ob.created_at, ob.created_at_epoch
FROM observations ob LEFT JOIN sessions s ON s.memory_session_id = ob.memory_session_id`

// AllObservations returns every observation ordered by created_at_epoch ascending.
func (s *Store) AllObservations(ctx context.Context) ([]document.Observation, error) {
	rows, err := s.db.QueryContext(ctx, observationSelect+` ORDER BY ob.created_at_epoch ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []document.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ObservationsSince returns observations with created_at_epoch >= since.
func (s *Store) ObservationsSince(ctx context.Context, since int64) ([]document.Observation, error) {
	rows, err := s.db.QueryContext(ctx, observationSelect+` WHERE ob.created_at_epoch >= ? ORDER BY ob.created_at_epoch ASC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []document.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanSummary(row interface{ Scan(dest ...any) error }) (document.Summary, error) {
	var sm document.Summary
	var project, title, narrative, concepts sql.NullString
	var promptNumber sql.NullInt64
	if err := row.Scan(&sm.MemorySessionID, &project, &sm.Text, &title, &narrative, &concepts,
		&promptNumber, &sm.DiscoveryTokens, &sm.CreatedAt, &sm.CreatedAtEpoch); err != nil {
		return document.Summary{}, err
	}
	sm.Project = project.String
	sm.Title = title.String
	sm.Narrative = narrative.String
	sm.Concepts = concepts.String
	if promptNumber.Valid {
		n := int(promptNumber.Int64)
		sm.PromptNumber = &n
	}
	return sm, nil
}

const summarySelect = `
SELECT sm.memory_session_id, COALESCE(s.project, ''), sm.text, sm.title, sm.narrative, sm.concepts,
	sm.prompt_number, sm.discovery_tokens, sm.created_at, sm.created_at_epoch
FROM summaries sm LEFT JOIN sessions s ON s.memory_session_id = sm.memory_session_id`

// AllSummaries returns every summary ordered by created_at_epoch ascending.
func (s *Store) AllSummaries(ctx context.Context) ([]document.Summary, error) {
	rows, err := s.db.QueryContext(ctx, summarySelect+` ORDER BY sm.created_at_epoch ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []document.Summary
	for rows.Next() {
		sm, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// SummariesSince returns summaries with created_at_epoch >= since.
func (s *Store) SummariesSince(ctx context.Context, since int64) ([]document.Summary, error) {
	rows, err := s.db.QueryContext(ctx, summarySelect+` WHERE sm.created_at_epoch >= ? ORDER BY sm.created_at_epoch ASC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []document.Summary
	for rows.Next() {
		sm, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

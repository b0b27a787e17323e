package syncengine

import (
	"context"
	"fmt"

	"github.com/anthropics/memsync/internal/document"
)

// ScheduleUserPromptSync enqueues a minimal cycle for a single prompt row:
// read it, build its document set (the prompt plus its piggybacked
// session), push, raise lastLocalPushEpoch, persist state. It does not run
// a pull.
func (e *Engine) ScheduleUserPromptSync(contentSessionID string, promptNumber int) {
	e.queue.Submit(func(ctx context.Context) error {
		row, found, err := e.store.PromptByID(ctx, contentSessionID, promptNumber)
		if err != nil {
			return fmt.Errorf("read prompt: %w", err)
		}
		if !found {
			return fmt.Errorf("prompt %s:%d not found locally", contentSessionID, promptNumber)
		}
		docs := []document.Document{document.BuildPromptDocument(row)}
		if sessDoc, ok, err := e.piggybackSessionByContentID(ctx, row.ContentSessionID, row.CreatedAtEpoch); err != nil {
			return fmt.Errorf("piggyback session: %w", err)
		} else if ok {
			docs = append(docs, sessDoc)
		}
		return e.pushMinimalCycle(ctx, docs)
	})
}

// ScheduleObservationSync is the event-driven variant for a single
// observation. The caller passes the row itself (its document id is
// content-addressed from it) and the memory_session_id used to look up the
// piggybacked session.
func (e *Engine) ScheduleObservationSync(memorySessionID string, row document.Observation) {
	e.queue.Submit(func(ctx context.Context) error {
		d, err := document.BuildObservationDocument(row)
		if err != nil {
			return fmt.Errorf("build observation document: %w", err)
		}
		docs := []document.Document{d}
		if sessDoc, ok, err := e.piggybackSessionByMemoryID(ctx, memorySessionID, row.CreatedAtEpoch); err != nil {
			return fmt.Errorf("piggyback session: %w", err)
		} else if ok {
			docs = append(docs, sessDoc)
		}
		return e.pushMinimalCycle(ctx, docs)
	})
}

// ScheduleSummarySync is the event-driven variant for a single summary.
func (e *Engine) ScheduleSummarySync(memorySessionID string, row document.Summary) {
	e.queue.Submit(func(ctx context.Context) error {
		d, err := document.BuildSummaryDocument(row)
		if err != nil {
			return fmt.Errorf("build summary document: %w", err)
		}
		docs := []document.Document{d}
		if sessDoc, ok, err := e.piggybackSessionByMemoryID(ctx, memorySessionID, row.CreatedAtEpoch); err != nil {
			return fmt.Errorf("piggyback session: %w", err)
		} else if ok {
			docs = append(docs, sessDoc)
		}
		return e.pushMinimalCycle(ctx, docs)
	})
}

// pushMinimalCycle pushes docs, raises lastLocalPushEpoch, and persists
// state — the shared tail of every event-driven schedule* variant.
func (e *Engine) pushMinimalCycle(ctx context.Context, docs []document.Document) error {
	sortAscending(docs)
	if err := e.backend.UpsertDocuments(ctx, docs); err != nil {
		return fmt.Errorf("push: %w", err)
	}

	fp := e.backend.TargetFingerprint()
	ts := e.state.Get(fp)
	ts.LastLocalPushEpoch = max64(ts.LastLocalPushEpoch, maxUpdatedAtEpoch(docs))
	if err := e.state.Put(fp, ts); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

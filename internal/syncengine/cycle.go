package syncengine

import (
	"context"
	"fmt"
	"sort"

	"github.com/anthropics/memsync/internal/document"
)

// performSynchronization runs one full cycle: init, optional bootstrap,
// incremental push, pull, persist. Any backend failure aborts the cycle,
// leaves cursors unchanged, and is logged; the next scheduled cycle
// retries.
func (e *Engine) performSynchronization(ctx context.Context, reason string, bootstrapRequested bool) error {
	log := e.log.With().Str("reason", reason).Logger()

	if err := e.backend.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	ts := e.state.Get(e.backend.TargetFingerprint())

	if bootstrapRequested && !ts.BootstrapComplete {
		updated, err := e.bootstrap(ctx, ts)
		if err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		ts = updated
		if err := e.state.Put(e.backend.TargetFingerprint(), ts); err != nil {
			log.Warn().Err(err).Msg("failed to persist state after bootstrap")
		}
	}

	updated, err := e.incrementalPush(ctx, ts)
	if err != nil {
		return fmt.Errorf("incremental push: %w", err)
	}
	ts = updated

	updated, err = e.pull(ctx, ts)
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	ts = updated

	if err := e.state.Put(e.backend.TargetFingerprint(), ts); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// bootstrap scans the entire local store, builds documents for every row,
// deduplicates by id keeping the highest updatedAtEpoch, sorts ascending
// by (updatedAtEpoch, id), and pushes in one batch.
func (e *Engine) bootstrap(ctx context.Context, ts TargetState) (TargetState, error) {
	docs, err := e.allLocalDocuments(ctx)
	if err != nil {
		return ts, err
	}

	docs = dedupeByIDKeepingHighest(docs)
	sortAscending(docs)

	if len(docs) > 0 {
		if err := e.backend.UpsertDocuments(ctx, docs); err != nil {
			return ts, fmt.Errorf("push bootstrap batch: %w", err)
		}
	}

	ts.BootstrapComplete = true
	ts.LastLocalPushEpoch = max64(ts.LastLocalPushEpoch, maxUpdatedAtEpoch(docs))
	return ts, nil
}

// incrementalPush collects prompts/observations/summaries created since
// the overlap-adjusted cursor, piggybacks their owning session documents,
// pushes the batch, and raises lastLocalPushEpoch.
func (e *Engine) incrementalPush(ctx context.Context, ts TargetState) (TargetState, error) {
	since := max64(0, ts.LastLocalPushEpoch-LocalOverlapMs)

	prompts, err := e.store.PromptsSince(ctx, since)
	if err != nil {
		return ts, err
	}
	observations, err := e.store.ObservationsSince(ctx, since)
	if err != nil {
		return ts, err
	}
	summaries, err := e.store.SummariesSince(ctx, since)
	if err != nil {
		return ts, err
	}

	var docs []document.Document
	seenSessions := make(map[string]bool)

	for _, p := range prompts {
		docs = append(docs, document.BuildPromptDocument(p))
		if sessDoc, ok, err := e.piggybackSessionByContentID(ctx, p.ContentSessionID, p.CreatedAtEpoch); err != nil {
			return ts, err
		} else if ok && !seenSessions[sessDoc.ID] {
			docs = append(docs, sessDoc)
			seenSessions[sessDoc.ID] = true
		}
	}
	for _, o := range observations {
		d, err := document.BuildObservationDocument(o)
		if err != nil {
			return ts, err
		}
		docs = append(docs, d)
		if sessDoc, ok, err := e.piggybackSessionByMemoryID(ctx, o.MemorySessionID, o.CreatedAtEpoch); err != nil {
			return ts, err
		} else if ok && !seenSessions[sessDoc.ID] {
			docs = append(docs, sessDoc)
			seenSessions[sessDoc.ID] = true
		}
	}
	for _, s := range summaries {
		d, err := document.BuildSummaryDocument(s)
		if err != nil {
			return ts, err
		}
		docs = append(docs, d)
		if sessDoc, ok, err := e.piggybackSessionByMemoryID(ctx, s.MemorySessionID, s.CreatedAtEpoch); err != nil {
			return ts, err
		} else if ok && !seenSessions[sessDoc.ID] {
			docs = append(docs, sessDoc)
			seenSessions[sessDoc.ID] = true
		}
	}

	if len(docs) == 0 {
		return ts, nil
	}

	sortAscending(docs)
	if err := e.backend.UpsertDocuments(ctx, docs); err != nil {
		return ts, fmt.Errorf("push incremental batch: %w", err)
	}

	ts.LastLocalPushEpoch = max64(ts.LastLocalPushEpoch, maxUpdatedAtEpoch(docs))
	return ts, nil
}

// pull fetches documents updated since the overlap-adjusted cursor, runs
// them through the importer, and raises lastPullEpoch to the max
// updatedAtEpoch observed regardless of per-document skips: a skipped
// document reflects a local invariant violation (missing session,
// conflicting memory_session_id), not remote staleness, and re-fetching
// it forever would not change that outcome.
func (e *Engine) pull(ctx context.Context, ts TargetState) (TargetState, error) {
	since := max64(0, ts.LastPullEpoch-RemoteOverlapMs)

	docs, err := e.backend.FetchDocumentsUpdatedSince(ctx, since)
	if err != nil {
		return ts, fmt.Errorf("fetch: %w", err)
	}
	if len(docs) == 0 {
		return ts, nil
	}

	if _, err := e.importer.ImportBatch(ctx, docs); err != nil {
		return ts, fmt.Errorf("import: %w", err)
	}

	ts.LastPullEpoch = max64(ts.LastPullEpoch, maxUpdatedAtEpoch(docs))
	return ts, nil
}

func (e *Engine) allLocalDocuments(ctx context.Context) ([]document.Document, error) {
	var docs []document.Document

	sessions, err := e.store.AllSessions(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		docs = append(docs, document.BuildSessionDocument(s, 0))
	}

	prompts, err := e.store.AllPrompts(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range prompts {
		docs = append(docs, document.BuildPromptDocument(p))
	}

	observations, err := e.store.AllObservations(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range observations {
		d, err := document.BuildObservationDocument(o)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}

	summaries, err := e.store.AllSummaries(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range summaries {
		d, err := document.BuildSummaryDocument(s)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}

	return docs, nil
}

func (e *Engine) piggybackSessionByContentID(ctx context.Context, contentSessionID string, bumpEpoch int64) (document.Document, bool, error) {
	row, found, err := e.store.SessionByContentID(ctx, contentSessionID)
	if err != nil || !found {
		return document.Document{}, false, err
	}
	return document.BuildSessionDocument(row, bumpEpoch), true, nil
}

func (e *Engine) piggybackSessionByMemoryID(ctx context.Context, memorySessionID string, bumpEpoch int64) (document.Document, bool, error) {
	row, found, err := e.store.SessionByMemoryID(ctx, memorySessionID)
	if err != nil || !found {
		return document.Document{}, false, err
	}
	return document.BuildSessionDocument(row, bumpEpoch), true, nil
}

func sortAscending(docs []document.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UpdatedAtEpoch != docs[j].UpdatedAtEpoch {
			return docs[i].UpdatedAtEpoch < docs[j].UpdatedAtEpoch
		}
		return docs[i].ID < docs[j].ID
	})
}

func maxUpdatedAtEpoch(docs []document.Document) int64 {
	var m int64
	for _, d := range docs {
		if d.UpdatedAtEpoch > m {
			m = d.UpdatedAtEpoch
		}
	}
	return m
}

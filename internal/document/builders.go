package document

// Builders are pure functions translating local rows into wire Documents.
// They never touch the store; callers supply already-read rows.

// BuildSessionDocument builds the document for a session row. bumpEpoch, if
// non-zero, overrides the default updatedAtEpoch computation — used when a
// related event (new prompt/observation/summary) piggybacks the session so
// the remote cursor captures secondary-field changes such as a
// memory_session_id being filled in later.
func BuildSessionDocument(row Session, bumpEpoch int64) Document {
	updated := row.StartedAtEpoch
	if row.CompletedAtEpoch > updated {
		updated = row.CompletedAtEpoch
	}
	if bumpEpoch > 0 {
		updated = bumpEpoch
	}
	return Document{
		ID:             SessionID(row.ContentSessionID),
		Kind:           KindSession,
		SortEpoch:      row.StartedAtEpoch,
		UpdatedAtEpoch: updated,
		Payload:        row,
	}
}

// BuildPromptDocument builds the document for a prompt row.
func BuildPromptDocument(row Prompt) Document {
	return Document{
		ID:             PromptID(row.ContentSessionID, row.PromptNumber),
		Kind:           KindPrompt,
		SortEpoch:      row.CreatedAtEpoch,
		UpdatedAtEpoch: row.CreatedAtEpoch,
		Payload:        row,
	}
}

// BuildObservationDocument builds the content-addressed document for an
// observation row.
func BuildObservationDocument(row Observation) (Document, error) {
	id, err := ObservationID(row)
	if err != nil {
		return Document{}, err
	}
	return Document{
		ID:             id,
		Kind:           KindObservation,
		SortEpoch:      row.CreatedAtEpoch,
		UpdatedAtEpoch: row.CreatedAtEpoch,
		Payload:        row,
	}, nil
}

// BuildSummaryDocument builds the content-addressed document for a summary row.
func BuildSummaryDocument(row Summary) (Document, error) {
	id, err := SummaryID(row)
	if err != nil {
		return Document{}, err
	}
	return Document{
		ID:             id,
		Kind:           KindSummary,
		SortEpoch:      row.CreatedAtEpoch,
		UpdatedAtEpoch: row.CreatedAtEpoch,
		Payload:        row,
	}, nil
}

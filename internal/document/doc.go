package document

// Canonicalization note: content-addressed ids (ObservationID, SummaryID)
// depend on Go's encoding/json marshaling a struct's fields in declaration
// order. Observation and Summary therefore declare their fields in the
// fixed order the wire contract pins: do not reorder them, and do not
// switch either type to a map — map key order is
// unspecified and would make two conforming implementations disagree on
// the same document's id.

package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObservationIDDeterministic(t *testing.T) {
	o1 := Observation{MemorySessionID: "m1", Project: "P", Text: "t", Type: "note", CreatedAtEpoch: 100}
	o2 := o1

	id1, err := ObservationID(o1)
	require.NoError(t, err)
	id2, err := ObservationID(o2)
	require.NoError(t, err)

	require.Equal(t, id1, id2, "equal payloads must hash to the same id")
	require.Contains(t, id1, "observation:")
}

func TestObservationIDChangesWithContent(t *testing.T) {
	base := Observation{MemorySessionID: "m1", Text: "t", CreatedAtEpoch: 100}
	other := base
	other.Text = "different"

	id1, _ := ObservationID(base)
	id2, _ := ObservationID(other)

	require.NotEqual(t, id1, id2)
}

func TestPromptIDDeterministicNoHash(t *testing.T) {
	require.Equal(t, "prompt:c1:1", PromptID("c1", 1))
	require.Equal(t, "prompt:c1:2", PromptID("c1", 2))
}

func TestSessionIDStable(t *testing.T) {
	require.Equal(t, "session:abc", SessionID("abc"))
}

func TestBuildSessionDocumentDefaultEpoch(t *testing.T) {
	row := Session{ContentSessionID: "c1", StartedAtEpoch: 10, CompletedAtEpoch: 20}
	doc := BuildSessionDocument(row, 0)
	require.Equal(t, int64(20), doc.UpdatedAtEpoch)
	require.Equal(t, int64(10), doc.SortEpoch)
}

func TestBuildSessionDocumentBumped(t *testing.T) {
	row := Session{ContentSessionID: "c1", StartedAtEpoch: 10, CompletedAtEpoch: 20}
	doc := BuildSessionDocument(row, 999)
	require.Equal(t, int64(999), doc.UpdatedAtEpoch)
}

// Package document defines the on-the-wire record shape the sync engine
// pushes to and pulls from a remote backend, and the deterministic id
// schemes that make replays idempotent.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Kind discriminates the payload carried by a Document. The wire "kind"
// field is authoritative; Go code should always switch on it rather than
// type-asserting the Payload.
type Kind string

const (
	KindSession     Kind = "session"
	KindPrompt      Kind = "prompt"
	KindObservation Kind = "observation"
	KindSummary     Kind = "summary"
)

// Document is the canonical wire unit exchanged with a Backend.
type Document struct {
	ID             string `json:"id"`
	Kind           Kind   `json:"kind"`
	SortEpoch      int64  `json:"sortEpoch"`
	UpdatedAtEpoch int64  `json:"updatedAtEpoch"`
	Payload        any    `json:"payload"`
}

// Session is the local/remote record for a conversation session.
type Session struct {
	ContentSessionID string  `json:"content_session_id"`
	MemorySessionID  *string `json:"memory_session_id,omitempty"`
	Project          string  `json:"project"`
	UserPrompt       string  `json:"user_prompt"`
	CustomTitle      *string `json:"custom_title,omitempty"`
	StartedAt        string  `json:"started_at"`
	StartedAtEpoch   int64   `json:"started_at_epoch"`
	CompletedAt      *string `json:"completed_at,omitempty"`
	CompletedAtEpoch int64   `json:"completed_at_epoch,omitempty"`
	Status           string  `json:"status"` // active | failed | completed
}

// Prompt is a single user prompt within a session.
type Prompt struct {
	ContentSessionID string `json:"content_session_id"`
	PromptNumber     int    `json:"prompt_number"`
	Project          string `json:"project"`
	PromptText       string `json:"prompt_text"`
	CreatedAt        string `json:"created_at"`
	CreatedAtEpoch   int64  `json:"created_at_epoch"`
}

// Observation is a rich memory record tied to a session by MemorySessionID.
type Observation struct {
	MemorySessionID string `json:"memory_session_id"`
	Project         string `json:"project"`
	Text            string `json:"text"`
	Type            string `json:"type"`
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	Facts           string `json:"facts"`
	Narrative       string `json:"narrative"`
	Concepts        string `json:"concepts"`
	FilesRead       string `json:"files_read"`
	FilesModified   string `json:"files_modified"`
	PromptNumber    *int   `json:"prompt_number,omitempty"`
	DiscoveryTokens int    `json:"discovery_tokens"`
	CreatedAt       string `json:"created_at"`
	CreatedAtEpoch  int64  `json:"created_at_epoch"`
}

// Summary is one semantic unit per prompt of a session.
type Summary struct {
	MemorySessionID string `json:"memory_session_id"`
	Project         string `json:"project"`
	Text            string `json:"text"`
	Title           string `json:"title"`
	Narrative       string `json:"narrative"`
	Concepts        string `json:"concepts"`
	PromptNumber    *int   `json:"prompt_number,omitempty"`
	DiscoveryTokens int    `json:"discovery_tokens"`
	CreatedAt       string `json:"created_at"`
	CreatedAtEpoch  int64  `json:"created_at_epoch"`
}

// SessionID returns the stable document id for a session.
func SessionID(contentSessionID string) string {
	return "session:" + contentSessionID
}

// PromptID returns the stable document id for a prompt: deterministic from
// (content_session_id, prompt_number), no hashing, since prompts are unique
// by this pair.
func PromptID(contentSessionID string, promptNumber int) string {
	return fmt.Sprintf("prompt:%s:%d", contentSessionID, promptNumber)
}

// hashedID returns "<kind>:" + sha256_hex(canonical_json(payload)). Payload
// must already have discovery_tokens normalized to an integer and its
// fields declared in the fixed order required by the wire contract.
func hashedID(kind Kind, payload any) (string, error) {
	canon, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize %s payload: %w", kind, err)
	}
	sum := sha256.Sum256(canon)
	return string(kind) + ":" + hex.EncodeToString(sum[:]), nil
}

// ObservationID computes the content-addressed id for an observation.
func ObservationID(o Observation) (string, error) {
	return hashedID(KindObservation, o)
}

// SummaryID computes the content-addressed id for a summary.
func SummaryID(s Summary) (string, error) {
	return hashedID(KindSummary, s)
}

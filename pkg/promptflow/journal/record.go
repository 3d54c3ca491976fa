package journal

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/zeebo/blake3"

	"github.com/randalmurphal/promptflow/pkg/promptflow/execute"
)

// Version is the current record format version.
// Increment when making breaking changes to Record.
const Version = 1

// Record is one journaled attempt.
type Record struct {
	Version int    `json:"version"`
	ID      string `json:"id"`
	RunID   string `json:"run_id"`

	// Step counts the leaves executed so far in the run, from 1.
	Step int    `json:"step"`
	Node string `json:"node,omitempty"`

	// Attempt is 0 for the initial attempt and n for the n-th retry.
	Attempt    int    `json:"attempt"`
	Model      string `json:"model"`
	ModelIndex int    `json:"model_index"`

	// PromptHash is the hex BLAKE3 digest of the rendered prompt. The
	// prompt itself is not stored.
	PromptHash string `json:"prompt_hash,omitempty"`

	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`

	Error  string `json:"error,omitempty"`
	Action string `json:"action,omitempty"`

	Started    time.Time `json:"started"`
	DurationMs int64     `json:"duration_ms"`
}

// NewRecord creates a record with a fresh ID.
func NewRecord(runID string, step int) *Record {
	return &Record{
		Version: Version,
		ID:      ulid.Make().String(),
		RunID:   runID,
		Step:    step,
		Started: time.Now().UTC(),
	}
}

// FromAttempt creates a record describing a dispatcher attempt.
func FromAttempt(runID string, step int, node string, a execute.Attempt) *Record {
	r := NewRecord(runID, step)
	r.Node = node
	r.Attempt = a.Number
	r.Model = a.Model
	r.ModelIndex = a.ModelIndex
	if a.Prompt != "" {
		r.PromptHash = HashPrompt(a.Prompt)
	}
	r.InputTokens = a.Usage.InputTokens
	r.OutputTokens = a.Usage.OutputTokens
	if a.Err != nil {
		r.Error = a.Err.Error()
		r.Action = a.Action
	}
	if !a.Started.IsZero() {
		r.Started = a.Started.UTC()
	}
	r.DurationMs = a.Duration.Milliseconds()
	return r
}

// Failed reports whether the attempt failed.
func (r *Record) Failed() bool { return r.Error != "" }

// Marshal serializes a record to JSON.
func (r *Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal deserializes a record from JSON.
func Unmarshal(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	if r.Version > Version {
		return nil, fmt.Errorf("record %s: unsupported version %d", r.ID, r.Version)
	}
	return &r, nil
}

// HashPrompt returns the hex BLAKE3 digest of prompt.
func HashPrompt(prompt string) string {
	sum := blake3.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

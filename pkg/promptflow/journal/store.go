// Package journal keeps an append-only log of execution attempts.
//
// Every attempt the dispatcher makes, initial or retry, successful or
// failed, becomes one Record. Records are grouped by run and returned in
// append order. Three stores are provided: MemoryStore for tests,
// SQLiteStore for a single process, and RedisStore for shared use.
package journal

import (
	"context"
	"errors"
	"time"
)

// Store persists journal records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append adds a record. Records with an existing ID are rejected
	// with ErrDuplicate.
	Append(ctx context.Context, r *Record) error

	// Get returns the record with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns the records of a run in append order.
	// Returns an empty slice (not an error) for an unknown run.
	List(ctx context.Context, runID string) ([]*Record, error)

	// Runs summarizes every run, most recently active first.
	Runs(ctx context.Context) ([]RunInfo, error)

	// DeleteRun removes every record of a run.
	// Returns nil if the run has no records.
	DeleteRun(ctx context.Context, runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// RunInfo summarizes one run without loading its records.
type RunInfo struct {
	RunID    string
	Records  int
	Failures int
	Last     time.Time
}

// Sentinel errors for journal operations.
var (
	// ErrNotFound indicates a record doesn't exist.
	ErrNotFound = errors.New("journal record not found")

	// ErrDuplicate indicates a record ID was appended twice.
	ErrDuplicate = errors.New("journal record already exists")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("journal store closed")

	// ErrInvalidRecord indicates a record missing its ID or run ID.
	ErrInvalidRecord = errors.New("journal record missing id or run id")
)

func validate(r *Record) error {
	if r == nil || r.ID == "" || r.RunID == "" {
		return ErrInvalidRecord
	}
	return nil
}

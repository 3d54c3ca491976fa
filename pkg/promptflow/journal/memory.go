package journal

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory journal for tests.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*Record
	runs   map[string][]*Record
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory journal.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]*Record),
		runs: make(map[string][]*Record),
	}
}

// Append implements Store.
func (m *MemoryStore) Append(_ context.Context, r *Record) error {
	if err := validate(r); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if _, ok := m.byID[r.ID]; ok {
		return ErrDuplicate
	}

	stored := *r
	m.byID[r.ID] = &stored
	m.runs[r.RunID] = append(m.runs[r.RunID], &stored)
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r
	return &out, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, runID string) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	recs := m.runs[runID]
	out := make([]*Record, len(recs))
	for i, r := range recs {
		c := *r
		out[i] = &c
	}
	return out, nil
}

// Runs implements Store.
func (m *MemoryStore) Runs(_ context.Context) ([]RunInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	infos := make([]RunInfo, 0, len(m.runs))
	for runID, recs := range m.runs {
		infos = append(infos, summarize(runID, recs))
	}
	sortRuns(infos)
	return infos, nil
}

// DeleteRun implements Store.
func (m *MemoryStore) DeleteRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	for _, r := range m.runs[runID] {
		delete(m.byID, r.ID)
	}
	delete(m.runs, runID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.byID = nil
	m.runs = nil
	return nil
}

// Len returns the total number of records across all runs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func summarize(runID string, recs []*Record) RunInfo {
	info := RunInfo{RunID: runID, Records: len(recs)}
	for _, r := range recs {
		if r.Failed() {
			info.Failures++
		}
		if r.Started.After(info.Last) {
			info.Last = r.Started
		}
	}
	return info
}

// sortRuns orders runs most recently active first, breaking ties by ID.
func sortRuns(infos []RunInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].Last.Equal(infos[j].Last) {
			return infos[i].Last.After(infos[j].Last)
		}
		return infos[i].RunID < infos[j].RunID
	})
}

package journal

import (
	"context"
	"sync"
)

const defaultKeep = 256

// MemoryJournal keeps records in process memory. Suitable for single-instance
// deployments and tests; history is lost on restart.
type MemoryJournal struct {
	mu       sync.RWMutex
	keep     int
	byTarget map[string][]Record
}

// NewMemoryJournal creates a journal retaining up to keep records per target.
// keep <= 0 falls back to a default of 256.
func NewMemoryJournal(keep int) *MemoryJournal {
	if keep <= 0 {
		keep = defaultKeep
	}
	return &MemoryJournal{
		keep:     keep,
		byTarget: make(map[string][]Record),
	}
}

// Append implements Journal.
func (j *MemoryJournal) Append(_ context.Context, rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	records := append([]Record{rec}, j.byTarget[rec.Target]...)
	if len(records) > j.keep {
		records = records[:j.keep]
	}
	j.byTarget[rec.Target] = records
	return nil
}

// Recent implements Journal. limit <= 0 returns everything retained.
func (j *MemoryJournal) Recent(_ context.Context, target string, limit int) ([]Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	records := j.byTarget[target]
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	out := make([]Record, limit)
	copy(out, records[:limit])
	return out, nil
}

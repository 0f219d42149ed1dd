package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-memory Store holding the most recent entries.
type Memory struct {
	mu      sync.RWMutex
	limit   int
	entries []*Entry // oldest first
	counter int64
}

// NewMemory creates a store retaining at most limit entries. limit <= 0
// means DefaultLimit.
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Memory{limit: limit}
}

// Record stores a copy of e.
func (m *Memory) Record(ctx context.Context, e *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counter++
	e.ID = formatID(m.counter)
	if e.CreateTime.IsZero() {
		e.CreateTime = time.Now()
	}

	stored := *e
	if len(m.entries) >= m.limit {
		copy(m.entries, m.entries[1:])
		m.entries[len(m.entries)-1] = &stored
		return nil
	}
	m.entries = append(m.entries, &stored)
	return nil
}

// Recent returns copies of the newest entries.
func (m *Memory) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*Entry, 0, n)
	for i := len(m.entries) - 1; i >= 0 && len(out) < n; i-- {
		e := *m.entries[i]
		out = append(out, &e)
	}
	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

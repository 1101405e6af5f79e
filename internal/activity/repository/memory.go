package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/tenantly/authweb/internal/activity"
)

// DefaultMemoryLimit bounds the in-memory log; the oldest events are dropped first.
const DefaultMemoryLimit = 1000

// MemoryRepo keeps events in process. Used when MongoDB is not configured and in tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	events []*activity.Event
	limit  int
}

func NewMemoryRepo(limit int) *MemoryRepo {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &MemoryRepo{limit: limit}
}

func (m *MemoryRepo) Insert(_ context.Context, e *activity.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = ulid.MustNew(ulid.Timestamp(e.At), ulid.DefaultEntropy()).String()
	}
	cp := *e
	m.events = append(m.events, &cp)
	if over := len(m.events) - m.limit; over > 0 {
		m.events = append(m.events[:0:0], m.events[over:]...)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (m *MemoryRepo) Recent(_ context.Context, limit int) ([]*activity.Event, error) {
	m.mu.RLock()
	out := make([]*activity.Event, len(m.events))
	for i, e := range m.events {
		cp := *e
		out[i] = &cp
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepo) CountSince(_ context.Context, kind activity.Kind, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, e := range m.events {
		if e.Kind == kind && !e.At.Before(since) {
			n++
		}
	}
	return n, nil
}

package sessions

import (
	"context"
	"sync"
	"time"
)

// Revoker records signed-out session ids until their container would have
// expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, id string, until time.Time) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// MemoryRevoker is a process-local Revoker, used when no Redis or Mongo is configured.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: map[string]time.Time{}, now: time.Now}
}

func (m *MemoryRevoker) Revoke(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, u := range m.revoked {
		if !now.Before(u) {
			delete(m.revoked, k)
		}
	}
	if now.Before(until) {
		m.revoked[id] = until
	}
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.revoked[id]
	if !ok {
		return false, nil
	}
	if !m.now().Before(until) {
		delete(m.revoked, id)
		return false, nil
	}
	return true, nil
}

package inflight

import (
	"context"
	"sync"
	"time"

	"revlens-dashboard-layer/internal/ports"
)

// MemorySyncGuard is an in-process SyncGuard. A restart clears it, which is
// acceptable for an advisory mark.
type MemorySyncGuard struct {
	mu      sync.Mutex
	pending map[int64]time.Time
}

// NewMemorySyncGuard creates an empty in-memory sync guard.
func NewMemorySyncGuard() ports.SyncGuard {
	return &MemorySyncGuard{
		pending: make(map[int64]time.Time),
	}
}

func (g *MemorySyncGuard) TryAcquire(_ context.Context, integrationID int64, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if deadline, ok := g.pending[integrationID]; ok && time.Now().Before(deadline) {
		return false, nil
	}
	g.pending[integrationID] = time.Now().Add(ttl)
	return true, nil
}

func (g *MemorySyncGuard) Release(_ context.Context, integrationID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, integrationID)
	return nil
}

func (g *MemorySyncGuard) InFlight(_ context.Context, integrationID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	deadline, ok := g.pending[integrationID]
	if !ok || time.Now().After(deadline) {
		delete(g.pending, integrationID)
		return false, nil
	}
	return true, nil
}

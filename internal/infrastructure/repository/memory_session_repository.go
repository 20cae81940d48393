package repository

import (
	"context"
	"sync"

	"revlens-dashboard-layer/internal/domain"
	"revlens-dashboard-layer/internal/ports"
)

// MemorySessionRepository is an in-process SessionRepository used in tests
// and single-instance deployments without MongoDB.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemorySessionRepository creates an empty in-memory session repository.
func NewMemorySessionRepository() ports.SessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*domain.Session),
	}
}

func (r *MemorySessionRepository) Save(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.Token] = &copied
	return nil
}

func (r *MemorySessionRepository) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[token]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (r *MemorySessionRepository) DeleteByToken(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[token]
	delete(r.sessions, token)
	return ok, nil
}

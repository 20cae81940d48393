package ports

import (
	"context"
	"time"

	"revlens-dashboard-layer/internal/domain"
)

// SessionRepository persists bearer sessions (token + cached user display).
type SessionRepository interface {
	// Save stores or replaces a session keyed by its token.
	Save(ctx context.Context, session *domain.Session) error

	// GetByToken returns the session for a token, or nil when unknown.
	GetByToken(ctx context.Context, token string) (*domain.Session, error)

	// DeleteByToken removes the session for a token. Deleting an already
	// cleared token is a no-op; it reports whether a session was present.
	DeleteByToken(ctx context.Context, token string) (bool, error)
}

// SyncGuard tracks which integrations have a sync request in flight so the
// UI can suppress duplicate triggers. The flag is advisory: entries expire
// on their own and true idempotence stays the backend's responsibility.
type SyncGuard interface {
	// TryAcquire marks a sync in flight for the integration. Returns false
	// when one is already pending.
	TryAcquire(ctx context.Context, integrationID int64, ttl time.Duration) (bool, error)

	// Release clears the in-flight mark once the sync call settles.
	Release(ctx context.Context, integrationID int64) error

	// InFlight reports whether a sync is currently marked pending.
	InFlight(ctx context.Context, integrationID int64) (bool, error)
}

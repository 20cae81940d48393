// Package inflight tracks per-integration requests in flight so duplicate
// sync triggers can be suppressed. The marks are advisory: they expire on
// their own and true idempotence stays the backend's responsibility.
package inflight

import (
	"context"
	"strconv"
	"time"

	"revlens-dashboard-layer/internal/ports"

	"github.com/redis/go-redis/v9"
)

// RedisSyncGuard implements SyncGuard on Redis using SET NX with a TTL, so
// the mark survives dashboard-layer restarts but can never wedge forever.
type RedisSyncGuard struct {
	client *redis.Client
	prefix string
}

// NewRedisSyncGuard creates a Redis-backed sync guard.
func NewRedisSyncGuard(client *redis.Client) ports.SyncGuard {
	return &RedisSyncGuard{
		client: client,
		prefix: "revlens:sync-inflight:",
	}
}

func (g *RedisSyncGuard) key(integrationID int64) string {
	return g.prefix + strconv.FormatInt(integrationID, 10)
}

func (g *RedisSyncGuard) TryAcquire(ctx context.Context, integrationID int64, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, g.key(integrationID), "1", ttl).Result()
}

func (g *RedisSyncGuard) Release(ctx context.Context, integrationID int64) error {
	return g.client.Del(ctx, g.key(integrationID)).Err()
}

func (g *RedisSyncGuard) InFlight(ctx context.Context, integrationID int64) (bool, error) {
	n, err := g.client.Exists(ctx, g.key(integrationID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

package approval

import (
	"context"
	"time"

	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/platform/cache"
)

// Snapshot is the last list fetched for one admin and queue.
type Snapshot struct {
	Items     []gateway.Item `json:"items"`
	Degraded  bool           `json:"degraded"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// SnapshotStore keeps the last fetched list per admin and queue.
type SnapshotStore interface {
	Load(ctx context.Context, scope string, kind Kind) (Snapshot, bool, error)
	Save(ctx context.Context, scope string, kind Kind, snap Snapshot) error
}

// RedisSnapshots stores snapshots as JSON in Redis.
type RedisSnapshots struct {
	cache *cache.JSON
}

// NewRedisSnapshots wraps a JSON cache. The cache TTL bounds how long an
// idle admin's snapshot is kept.
func NewRedisSnapshots(c *cache.JSON) *RedisSnapshots {
	return &RedisSnapshots{cache: c}
}

func snapshotKey(scope string, kind Kind) string {
	return "mendaur:snapshot:" + scope + ":" + string(kind)
}

// Load returns the stored snapshot, if any.
func (s *RedisSnapshots) Load(ctx context.Context, scope string, kind Kind) (Snapshot, bool, error) {
	var snap Snapshot
	hit, err := s.cache.Get(ctx, snapshotKey(scope, kind), &snap)
	return snap, hit, err
}

// Save replaces the stored snapshot.
func (s *RedisSnapshots) Save(ctx context.Context, scope string, kind Kind, snap Snapshot) error {
	return s.cache.Set(ctx, snapshotKey(scope, kind), snap)
}

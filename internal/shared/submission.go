package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultSubmissionTTL bounds how long a crashed request can hold an item.
const DefaultSubmissionTTL = 60 * time.Second

// SubmissionGuard allows one in-flight mutation per item across requests.
type SubmissionGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubmissionGuard constructs the guard.
func NewSubmissionGuard(client *redis.Client, ttl time.Duration) *SubmissionGuard {
	if ttl <= 0 {
		ttl = DefaultSubmissionTTL
	}
	return &SubmissionGuard{client: client, ttl: ttl}
}

// SubmissionKey builds the redis key for an item mutation.
func SubmissionKey(kind, id string) string {
	return fmt.Sprintf("mendaur:submit:%s:%s", kind, id)
}

// Acquire claims the key. The returned release func must be called once the
// mutation finished; it only removes the key while this holder still owns it.
func (g *SubmissionGuard) Acquire(ctx context.Context, key string) (func(), error) {
	if g == nil || g.client == nil {
		return func() {}, nil
	}
	if key == "" {
		return nil, errors.New("submission key required")
	}
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire submission: %w", err)
	}
	if !ok {
		return nil, ErrSubmissionInFlight
	}
	release := func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, g.client, []string{key}, token).Err()
	}
	return release, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

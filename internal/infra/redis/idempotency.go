package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	idemInFlight  = "in_flight"
	idemCompleted = "completed"

	// completedTTL keeps delivered keys around long enough that a stale
	// duplicate cannot slip through after the in-flight window.
	completedTTL = 30 * 24 * time.Hour
)

// IdempotencyRegistry guards the at-most-once-delivery invariant at the
// dispatch boundary: a key with an in-flight or completed attempt is
// rejected, not re-sent. Transient failures release the key so the same
// post can retry.
type IdempotencyRegistry struct {
	cli *redis.Client
}

func NewIdempotencyRegistry(c *Client) *IdempotencyRegistry {
	return &IdempotencyRegistry{cli: c.cli}
}

func idemKey(key string) string { return "idem:" + key }

// Reserve claims the key for one publish attempt. Returns false when a
// previous attempt is still in flight or already completed.
func (r *IdempotencyRegistry) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.cli.SetNX(ctx, idemKey(key), idemInFlight, ttl).Result()
}

// Complete marks the key delivered; subsequent reservations fail.
func (r *IdempotencyRegistry) Complete(ctx context.Context, key string) error {
	return r.cli.Set(ctx, idemKey(key), idemCompleted, completedTTL).Err()
}

var luaReleaseInFlight = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

// Release frees an in-flight reservation after a failed attempt. A
// completed marker is never released.
func (r *IdempotencyRegistry) Release(ctx context.Context, key string) error {
	_, err := luaReleaseInFlight.Run(ctx, r.cli, []string{idemKey(key)}, idemInFlight).Result()
	return err
}

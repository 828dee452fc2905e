package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// luaSlidingWindow prunes entries older than the window, then admits the
// call only if the remaining count is under the budget. One atomic script
// so concurrent callers cannot both observe the same free slot.
var luaSlidingWindow = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], 0, ARGV[1])
if redis.call("ZCARD", KEYS[1]) < tonumber(ARGV[2]) then
	redis.call("ZADD", KEYS[1], ARGV[3], ARGV[4])
	redis.call("PEXPIRE", KEYS[1], ARGV[5])
	return 1
end
return 0`)

// RateLimiter admits a bounded number of operations per rolling window,
// shared across pipeline instances. The window slides: the budget holds
// over any interval of the window length, not just aligned buckets.
type RateLimiter struct {
	cli *redis.Client
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{cli: client.cli}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMilli()
	cutoff := now - window.Milliseconds()
	member := strconv.FormatInt(now, 10) + ":" + uuid.NewString()

	res, err := luaSlidingWindow.Run(ctx, r.cli, []string{key},
		cutoff, limit, now, member, window.Milliseconds()).Result()
	if err != nil {
		return false, err
	}
	admitted, ok := res.(int64)
	return ok && admitted == 1, nil
}

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/you/fueltrack/domain"
)

const keyPrefix = "ratelimit:"

// Prune, count, conditionally record. Scores are unix milliseconds.
// ARGV: now, cutoff, max, member, window
var slidingWindowScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[2])
local count = redis.call("ZCARD", KEYS[1])
if count >= tonumber(ARGV[3]) then
  return 0
end
redis.call("ZADD", KEYS[1], ARGV[1], ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return 1
`)

// RedisLimiter implements domain.RateLimiter with one sorted set per identifier
type RedisLimiter struct {
	client *redis.Client
	nowFn  func() time.Time
}

// NewRedisLimiter constructs a RedisLimiter. nowFn defaults to time.Now.
func NewRedisLimiter(client *redis.Client, nowFn func() time.Time) *RedisLimiter {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &RedisLimiter{client: client, nowFn: nowFn}
}

// Allow implements domain.RateLimiter
func (l *RedisLimiter) Allow(ctx context.Context, identifier string, maxAttempts int, window time.Duration) (bool, error) {
	if err := checkArgs(identifier, maxAttempts, window); err != nil {
		return false, err
	}

	now := l.nowFn().UnixMilli()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()
	res, err := slidingWindowScript.Run(ctx, l.client,
		[]string{keyPrefix + identifier},
		now, now-window.Milliseconds(), maxAttempts, member, window.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit redis: %w", err)
	}
	return res == 1, nil
}

// Reset drops the attempt log for identifier
func (l *RedisLimiter) Reset(ctx context.Context, identifier string) error {
	return l.client.Del(ctx, keyPrefix+identifier).Err()
}

func checkArgs(identifier string, maxAttempts int, window time.Duration) error {
	switch {
	case identifier == "":
		return fmt.Errorf("%w: empty rate limit identifier", domain.ErrInvalidInput)
	case maxAttempts <= 0:
		return fmt.Errorf("%w: max attempts must be positive", domain.ErrInvalidInput)
	case window <= 0:
		return fmt.Errorf("%w: window must be positive", domain.ErrInvalidInput)
	}
	return nil
}

// New returns the limiter for the configured backend
func New(backend string, client *redis.Client) (domain.RateLimiter, error) {
	switch backend {
	case "memory":
		return NewMemoryLimiter(nil), nil
	case "redis":
		if client == nil {
			return nil, errors.New("rate limit: redis backend requires a client")
		}
		return NewRedisLimiter(client, nil), nil
	}
	return nil, fmt.Errorf("rate limit: unknown backend %q", backend)
}

var (
	_ domain.RateLimiter = (*RedisLimiter)(nil)
	_ domain.RateLimiter = (*MemoryLimiter)(nil)
)

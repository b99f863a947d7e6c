package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// windowScript counts a hit and returns {count, remaining window in ms}. A key
// left without a TTL gets one, so a window can never become permanent.
var windowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

const defaultPrefix = "bookpromo:ratelimit"

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a Redis fixed-window counter shared by every replica. The
// window of a key starts at its first hit.
type Limiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// New wraps an existing client.
func New(client redis.UniversalClient, prefix string, limit int, window time.Duration) (*Limiter, error) {
	if client == nil {
		return nil, errors.New("ratelimit: redis client is required")
	}
	if limit <= 0 || window < time.Millisecond {
		return nil, fmt.Errorf("ratelimit: invalid quota %d per %s", limit, window)
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Limiter{client: client, prefix: prefix, limit: limit, window: window}, nil
}

// NewRedis dials addr and builds a Limiter that owns the connection.
func NewRedis(addr, password, prefix string, limit int, window time.Duration) (*Limiter, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("ratelimit: redis addr is required")
	}
	return New(redis.NewClient(&redis.Options{Addr: addr, Password: password}), prefix, limit, window)
}

// Allow records a hit for key. Errors mean the decision is unknown; callers
// should refuse the request.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	res, err := windowScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	d := Decision{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: max(0, l.limit-int(count)),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}

// Close releases the Redis client.
func (l *Limiter) Close() error {
	return l.client.Close()
}

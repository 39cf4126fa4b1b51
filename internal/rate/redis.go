package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript returns {allowed, count, pttl}. A key left without a TTL is
// given one so a counter can never become permanent.
var hitScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local allowed = 0
if current < limit then
  current = redis.call('INCR', KEYS[1])
  if current == 1 then
    redis.call('PEXPIRE', KEYS[1], window)
  end
  allowed = 1
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end
return {allowed, current, ttl}
`)

// RedisStore keeps fixed windows as Redis counters with a PEXPIRE set on the
// first hit.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore returns a store writing keys under prefix ("tg:" when empty).
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "tg:"
	}
	return &RedisStore{redis: client, prefix: prefix, now: time.Now}
}

// Hit implements Store.
func (s *RedisStore) Hit(ctx context.Context, key string, span time.Duration, maxAttempts int) (Decision, error) {
	res, err := hitScript.Run(ctx, s.redis, []string{s.prefix + key}, maxAttempts, span.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("%w: unexpected script reply %v", ErrRedisUnavailable, res)
	}

	ttl := time.Duration(res[2]) * time.Millisecond
	d := Decision{
		Allowed:    res[0] == 1,
		Count:      int(res[1]),
		ResetAt:    s.now().Add(ttl),
		RetryAfter: ttl,
	}
	return d, nil
}

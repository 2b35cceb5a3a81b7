package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// takeScript implements the token bucket atomically server-side. State per
// key is a hash of the remaining tokens and the last refill timestamp in
// milliseconds. Returns {allowed, retry_ms}.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local interval_ms = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])

local state = redis.call('HMGET', key, 'tokens', 'refilled_at')
local tokens = tonumber(state[1])
local refilled_at = tonumber(state[2])

if tokens == nil then
  tokens = capacity
  refilled_at = now_ms
else
  local elapsed = now_ms - refilled_at
  if elapsed >= interval_ms then
    local refill = math.floor(elapsed / interval_ms)
    tokens = math.min(capacity, tokens + refill)
    refilled_at = refilled_at + refill * interval_ms
  end
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_ms = interval_ms - (now_ms - refilled_at)
  if retry_ms < 0 then
    retry_ms = 0
  end
end

redis.call('HMSET', key, 'tokens', tokens, 'refilled_at', refilled_at)
redis.call('PEXPIRE', key, interval_ms * (capacity + 1))
return {allowed, retry_ms}
`)

// RedisStore shares buckets across replicas. Each Take is a single script
// round trip, so concurrent requests against the same key serialize on the
// Redis side.
type RedisStore struct {
	client   *redis.Client
	capacity int
	interval time.Duration
}

func NewRedisStore(client *redis.Client, capacity int, refillInterval time.Duration) *RedisStore {
	return &RedisStore{
		client:   client,
		capacity: capacity,
		interval: refillInterval,
	}
}

func (s *RedisStore) Take(ctx context.Context, key string) (Decision, error) {
	result, err := takeScript.Run(ctx, s.client,
		[]string{"throttle:" + key},
		s.capacity,
		s.interval.Milliseconds(),
		time.Now().UnixMilli(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("throttle script failed: %w", err)
	}
	if len(result) != 2 {
		return Decision{}, fmt.Errorf("throttle script returned %d values, want 2", len(result))
	}

	if result[0] == 1 {
		return Decision{Allowed: true}, nil
	}

	retryAfter := time.Duration(result[1]) * time.Millisecond
	if retryAfter <= 0 {
		retryAfter = s.interval
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}

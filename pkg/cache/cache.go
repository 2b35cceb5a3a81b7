// Package cache is a read-through JSON cache on Redis. Every entry belongs
// to one category with a fixed TTL, and every write records the key in a
// per-category index set. Invalidation deletes through the index, never by
// scanning the keyspace, and always deletes rather than refreshing.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirsanndy/room-booking-sub001/pkg/logger"
)

const (
	CategoryRooms        = "rooms"
	CategoryHolidays     = "holidays"
	CategoryUserBookings = "user-bookings"
	CategoryRoomSchedule = "room-schedule"
	CategoryUpcoming     = "upcoming"
	CategoryDashboard    = "dashboard"
)

type Cache struct {
	client *redis.Client
	log    *logger.Logger
}

func New(client *redis.Client, log *logger.Logger) *Cache {
	return &Cache{
		client: client,
		log:    log,
	}
}

func entryKey(category, id string) string {
	return category + ":" + id
}

func indexKey(category string) string {
	return "idx:" + category
}

// GetJSON loads category:id into target and reports whether it was found.
// Any cache failure degrades to a miss so callers fall through to the
// source of truth.
func (c *Cache) GetJSON(ctx context.Context, category, id string, target any) bool {
	key := entryKey(category, id)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.log.Warn("Cache read failed",
			"key", key,
			"error", err,
		)
		return false
	}

	if err := json.Unmarshal([]byte(data), target); err != nil {
		c.log.Warn("Cache entry corrupt, dropping",
			"key", key,
			"error", err,
		)
		c.client.Del(ctx, key)
		return false
	}

	return true
}

// SetJSON stores value under category:id for ttl and records the key in the
// category index. The index outlives its members slightly; Invalidate
// tolerates dangling entries.
func (c *Cache) SetJSON(ctx context.Context, category, id string, value any, ttl time.Duration) {
	key := entryKey(category, id)

	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("Cache marshal failed",
			"key", key,
			"error", err,
		)
		return
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.SAdd(ctx, indexKey(category), key)
	pipe.Expire(ctx, indexKey(category), 2*ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("Cache write failed",
			"key", key,
			"error", err,
		)
	}
}

// InvalidateKey deletes a single entry and its index membership.
func (c *Cache) InvalidateKey(ctx context.Context, category, id string) {
	key := entryKey(category, id)

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, indexKey(category), key)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("Cache invalidation failed",
			"key", key,
			"error", err,
		)
	}
}

// Invalidate deletes every entry of a category through its key index.
func (c *Cache) Invalidate(ctx context.Context, category string) {
	keys, err := c.client.SMembers(ctx, indexKey(category)).Result()
	if err != nil {
		c.log.Warn("Cache index read failed",
			"category", category,
			"error", err,
		)
		return
	}

	pipe := c.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, indexKey(category))
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("Cache invalidation failed",
			"category", category,
			"error", err,
		)
	}
}

// InvalidatePrefix deletes every entry of a category whose id starts with
// prefix. Candidates come from the key index, so paginated variants of one
// logical entry ("owner:limit:offset") all fall together without a keyspace
// scan.
func (c *Cache) InvalidatePrefix(ctx context.Context, category, prefix string) {
	keys, err := c.client.SMembers(ctx, indexKey(category)).Result()
	if err != nil {
		c.log.Warn("Cache index read failed",
			"category", category,
			"error", err,
		)
		return
	}

	full := entryKey(category, prefix)
	var doomed []string
	for _, key := range keys {
		if strings.HasPrefix(key, full) {
			doomed = append(doomed, key)
		}
	}
	if len(doomed) == 0 {
		return
	}

	members := make([]any, len(doomed))
	for i, key := range doomed {
		members[i] = key
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, doomed...)
	pipe.SRem(ctx, indexKey(category), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("Cache invalidation failed",
			"category", category,
			"prefix", prefix,
			"error", err,
		)
	}
}

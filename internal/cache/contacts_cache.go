package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"contacts/internal/config"
	"contacts/internal/model"
)

// ContactCache caches contact result sets in Redis as JSON. It is strictly
// best-effort: a nil client, a disabled config or any Redis error reads as
// a miss and writes as a no-op, so the database path always works.
type ContactCache struct {
	client *redis.Client
	cfg    config.CacheConfig
}

func NewContactCache(client *redis.Client, cfg config.CacheConfig) *ContactCache {
	return &ContactCache{client: client, cfg: cfg}
}

// Enabled reports whether lookups will ever hit Redis.
func (c *ContactCache) Enabled() bool {
	return c != nil && c.client != nil && c.cfg.Enabled
}

func (c *ContactCache) SearchTTL() time.Duration    { return c.cfg.SearchTTL }
func (c *ContactCache) BirthdaysTTL() time.Duration { return c.cfg.BirthdaysTTL }

// Get returns the cached result set for key, if present.
func (c *ContactCache) Get(ctx context.Context, key string) ([]model.Contact, bool) {
	if !c.Enabled() {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("cache get %s: %v", key, err)
		return nil, false
	}
	var contacts []model.Contact
	if err := json.Unmarshal(raw, &contacts); err != nil {
		// A stale or corrupt entry is dropped and refilled from the DB.
		log.Printf("cache decode %s: %v", key, err)
		_ = c.client.Del(ctx, key).Err()
		return nil, false
	}
	return contacts, true
}

// Set stores a result set under key for ttl. Failures are logged and
// swallowed.
func (c *ContactCache) Set(ctx context.Context, key string, contacts []model.Contact, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	raw, err := json.Marshal(contacts)
	if err != nil {
		log.Printf("cache encode %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Printf("cache set %s: %v", key, err)
	}
}

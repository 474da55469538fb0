// Package store tracks which refresh and password-reset tokens are
// currently live. Entries expire on their own TTL; deleting an entry
// revokes the token before its natural expiry. Absence of a key is a
// normal, common state, not an error.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when no Redis client is configured. Callers
// treat it like any other store error: fall back to the user-row track.
var ErrUnavailable = errors.New("session store unavailable")

// Key prefixes for the two tracked token kinds.
func RefreshKey(token string) string { return "rt:" + token }
func ResetKey(token string) string   { return "pr:" + token }

// SessionStore is the key-value capability the auth lifecycle consumes.
type SessionStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// GetDel atomically reads and removes the key. Single-key atomicity
	// makes it the linearization point for single-use tokens: of two
	// concurrent callers, exactly one sees the value.
	GetDel(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// RedisSessionStore implements SessionStore on a Redis client.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.client == nil {
		return ErrUnavailable
	}
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisSessionStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.client == nil {
		return "", false, ErrUnavailable
	}
	val, err := s.client.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
		return "", false, nil // key absent - valid state
	case err != nil:
		return "", false, err
	default:
		return val, true, nil
	}
}

func (s *RedisSessionStore) GetDel(ctx context.Context, key string) (string, bool, error) {
	if s.client == nil {
		return "", false, ErrUnavailable
	}
	val, err := s.client.GetDel(ctx, key).Result()
	switch {
	case err == redis.Nil:
		return "", false, nil
	case err != nil:
		return "", false, err
	default:
		return val, true, nil
	}
}

func (s *RedisSessionStore) Exists(ctx context.Context, key string) (bool, error) {
	if s.client == nil {
		return false, ErrUnavailable
	}
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (s *RedisSessionStore) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return ErrUnavailable
	}
	return s.client.Del(ctx, key).Err()
}

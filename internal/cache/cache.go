// Package cache provides a small redis-backed JSON cache for hot read
// endpoints. A nil Store disables caching without touching call sites.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Cache keys for category aggregates, dropped whenever tools change.
const (
	KeyCategoriesWithCounts = "categories_with_counts"
	KeyToolCountsByCategory = "tool_counts_by_category"
)

// defaultTTL bounds staleness when an invalidation is missed.
const defaultTTL = 10 * time.Minute

// Store wraps a redis client with JSON marshaling. All methods are safe on
// a nil receiver.
type Store struct {
	client *redis.Client
}

// New connects to redis. An empty addr returns a nil Store.
func New(addr, password string, db int) *Store {
	if addr == "" {
		return nil
	}
	return &Store{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// GetJSON loads a cached value into dest, reporting whether it was present.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) bool {
	if s == nil {
		return false
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.WithError(err).WithField("key", key).Warn("cache: get")
		}
		return false
	}
	if errUnmarshal := json.Unmarshal(raw, dest); errUnmarshal != nil {
		log.WithError(errUnmarshal).WithField("key", key).Warn("cache: decode")
		return false
	}
	return true
}

// SetJSON stores a value under key with the default TTL.
func (s *Store) SetJSON(ctx context.Context, key string, value any) {
	if s == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("cache: encode")
		return
	}
	if errSet := s.client.Set(ctx, key, raw, defaultTTL).Err(); errSet != nil {
		log.WithError(errSet).WithField("key", key).Warn("cache: set")
	}
}

// Forget drops the given keys.
func (s *Store) Forget(ctx context.Context, keys ...string) {
	if s == nil || len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		log.WithError(err).Warn("cache: forget")
	}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}

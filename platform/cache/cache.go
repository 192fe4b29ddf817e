// Package cache provides a redis-backed key/value store for derived report
// data. This is part of the platform layer and contains no business logic.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"nashcrm_backend/platform/config"
	"nashcrm_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is not present.
var ErrMiss = errors.New("cache miss")

// Store is a thin wrapper over a redis client. Values are JSON-encoded.
// Deletion is best-effort: report data is recomputed on the next read,
// so a failed invalidation only costs freshness, never correctness.
type Store struct {
	client *redis.Client
	log    *logger.Logger
}

// New connects to redis using the configured URL.
func New(cfg config.RedisConfig, log *logger.Logger) (*Store, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	return &Store{client: redis.NewClient(opt), log: log}, nil
}

// NewWithClient wraps an existing client. Used by tests with miniredis.
func NewWithClient(client *redis.Client, log *logger.Logger) *Store {
	return &Store{client: client, log: log}
}

// Set stores a JSON-encoded value under key with the given TTL.
func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// Get loads the value stored under key into dest. Returns ErrMiss when the
// key is absent.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Delete removes the given keys. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil && s.log != nil {
		s.log.Warn("cache delete failed", "keys", keys, "error", err)
	}
}

// DeletePattern removes all keys matching the glob pattern via SCAN.
// Degrades to a no-op when the scan fails; callers must not depend on it.
func (s *Store) DeletePattern(ctx context.Context, pattern string) {
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		if s.log != nil {
			s.log.Warn("cache pattern scan failed", "pattern", pattern, "error", err)
		}
		return
	}
	s.Delete(ctx, keys...)
}

// Ping verifies the redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Package redisstore provides a Redis-backed cache.Store guarded by a circuit breaker.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"scorebot/pkg/cache"
)

const (
	defaultScanCount       = 256
	defaultBreakerTimeout  = 30 * time.Second
	defaultBreakerInterval = time.Minute
	defaultTripThreshold   = 5
)

// Config describes one Redis-backed store.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key as <Prefix>:<key>.
	Prefix string
}

// Store implements cache.Store over a Redis client.
type Store struct {
	client  redis.UniversalClient
	prefix  string
	breaker *gobreaker.CircuitBreaker
}

// Open dials Redis and verifies connectivity.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("open redis store: empty addr")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return New(client, cfg.Prefix), nil
}

// New wraps an existing client.
func New(client redis.UniversalClient, prefix string) *Store {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Interval:    defaultBreakerInterval,
		Timeout:     defaultBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > defaultTripThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
	})

	return &Store{
		client:  client,
		prefix:  strings.TrimSuffix(prefix, ":"),
		breaker: breaker,
	}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) redisKey(key string) (string, error) {
	if err := cache.ValidateKey(key); err != nil {
		return "", err
	}
	if s.prefix == "" {
		return key, nil
	}

	return s.prefix + ":" + key, nil
}

func (s *Store) stripPrefix(redisKey string) string {
	if s.prefix == "" {
		return redisKey
	}

	return strings.TrimPrefix(redisKey, s.prefix+":")
}

func (s *Store) execute(fn func() error) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, fn()
	})

	return err
}

// Get returns the stored value or fallback on redis.Nil.
func (s *Store) Get(ctx context.Context, key string, fallback string) (string, error) {
	redisKey, err := s.redisKey(key)
	if err != nil {
		return "", err
	}

	var value string
	err = s.execute(func() error {
		var getErr error
		value, getErr = s.client.Get(ctx, redisKey).Result()
		return getErr
	})
	if errors.Is(err, redis.Nil) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}

	return value, nil
}

// Set stores value with the given ttl; zero means no expiry.
func (s *Store) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	redisKey, err := s.redisKey(key)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}

	if err := s.execute(func() error {
		return s.client.Set(ctx, redisKey, value, ttl).Err()
	}); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// Delete removes key. DEL on a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	redisKey, err := s.redisKey(key)
	if err != nil {
		return err
	}

	if err := s.execute(func() error {
		return s.client.Del(ctx, redisKey).Err()
	}); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}

	return nil
}

// Clear deletes every key carrying this store's prefix. An empty prefix is
// refused so Clear can never flush a shared database.
func (s *Store) Clear(ctx context.Context) error {
	if s.prefix == "" {
		return fmt.Errorf("redis clear: refusing to clear without a key prefix")
	}
	keys, err := s.scan(ctx)
	if err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := s.execute(func() error {
		return s.client.Del(ctx, keys...).Err()
	}); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}

	return nil
}

// Keys lists namespace keys without the prefix, sorted.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	redisKeys, err := s.scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis keys: %w", err)
	}

	keys := make([]string, 0, len(redisKeys))
	for _, redisKey := range redisKeys {
		keys = append(keys, s.stripPrefix(redisKey))
	}
	sort.Strings(keys)

	return keys, nil
}

func (s *Store) scan(ctx context.Context) ([]string, error) {
	pattern := "*"
	if s.prefix != "" {
		pattern = s.prefix + ":*"
	}

	keys := make([]string, 0)
	err := s.execute(func() error {
		iter := s.client.Scan(ctx, 0, pattern, defaultScanCount).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		return iter.Err()
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// GetMultiple reads every key with one MGET.
func (s *Store) GetMultiple(ctx context.Context, keys []string, fallback string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	redisKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		redisKey, err := s.redisKey(key)
		if err != nil {
			return nil, err
		}
		redisKeys = append(redisKeys, redisKey)
	}

	var raw []any
	if err := s.execute(func() error {
		var mgetErr error
		raw, mgetErr = s.client.MGet(ctx, redisKeys...).Result()
		return mgetErr
	}); err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	values := make(map[string]string, len(keys))
	for idx, key := range keys {
		value, ok := raw[idx].(string)
		if !ok {
			value = fallback
		}
		values[key] = value
	}

	return values, nil
}

// SetMultiple writes every entry, attempting all of them.
func (s *Store) SetMultiple(ctx context.Context, values map[string]string, ttl time.Duration) error {
	return cache.SetEach(ctx, values, ttl, s.Set)
}

// DeleteMultiple removes every key, attempting all of them.
func (s *Store) DeleteMultiple(ctx context.Context, keys []string) error {
	return cache.DeleteEach(ctx, keys, s.Delete)
}

// Has reports whether key exists.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	redisKey, err := s.redisKey(key)
	if err != nil {
		return false, err
	}

	var count int64
	if err := s.execute(func() error {
		var existsErr error
		count, existsErr = s.client.Exists(ctx, redisKey).Result()
		return existsErr
	}); err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}

	return count > 0, nil
}

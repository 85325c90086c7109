// Package cache builds the configured cache.Store backend.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scorebot/internal/cache/filesystem"
	"scorebot/internal/cache/layered"
	"scorebot/internal/cache/redisstore"
	"scorebot/internal/cache/sqlitestore"
	"scorebot/pkg/cache"
)

const (
	// BackendFilesystem stores one file per key.
	BackendFilesystem = "filesystem"
	// BackendSQLite stores entries in a SQLite table.
	BackendSQLite = "sqlite"
	// BackendRedis stores entries in Redis.
	BackendRedis = "redis"

	defaultNamespace = "scorebot"
)

// Config selects and configures one backend.
type Config struct {
	Backend   string `yaml:"backend" env:"BACKEND"`
	Path      string `yaml:"path" env:"PATH"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`

	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`

	MemoryEntries int64         `yaml:"memory_entries" env:"MEMORY_ENTRIES"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" env:"MEMORY_TTL"`
}

// Open builds the configured store. A positive MemoryEntries wraps the backend
// with an in-memory layer.
func Open(ctx context.Context, cfg Config) (cache.Store, error) {
	namespace := strings.TrimSpace(cfg.Namespace)
	if namespace == "" {
		namespace = defaultNamespace
	}

	var (
		store cache.Store
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendFilesystem:
		store, err = filesystem.New(cfg.Path)
	case BackendSQLite:
		store, err = sqlitestore.Open(cfg.Path, namespace)
	case BackendRedis:
		store, err = redisstore.Open(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   namespace,
		})
	default:
		return nil, fmt.Errorf("open cache: unsupported backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", cfg.Backend, err)
	}

	if cfg.MemoryEntries <= 0 {
		return store, nil
	}
	front, err := layered.New(store, layered.WithMaxEntries(cfg.MemoryEntries), layered.WithTTL(cfg.MemoryTTL))
	if err != nil {
		if closer, ok := store.(cache.Closer); ok {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("open cache memory layer: %w", err)
	}

	return front, nil
}

// Close releases store resources when the backend owns any.
func Close(store cache.Store) error {
	if closer, ok := store.(cache.Closer); ok {
		return closer.Close()
	}

	return nil
}

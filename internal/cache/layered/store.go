// Package layered puts a bounded in-memory cache in front of a durable
// cache.Store. Reads fill the front cache; writes go to the durable store first
// and then invalidate the front entry.
package layered

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"scorebot/pkg/cache"
)

const (
	defaultMaxEntries = 1024
	defaultTTL        = 5 * time.Minute
	bufferItems       = 64
)

// Stats reports front cache effectiveness.
type Stats struct {
	Hits   int64
	Misses int64
}

type options struct {
	maxEntries int64
	ttl        time.Duration
}

// Option configures a layered store.
type Option func(*options)

// WithMaxEntries bounds the number of values kept in memory.
func WithMaxEntries(entries int64) Option {
	return func(opts *options) {
		if entries > 0 {
			opts.maxEntries = entries
		}
	}
}

// WithTTL bounds how long a filled value may be served from memory.
func WithTTL(ttl time.Duration) Option {
	return func(opts *options) {
		if ttl > 0 {
			opts.ttl = ttl
		}
	}
}

// Store is a read-through, write-invalidate cache over a backing store.
type Store struct {
	backing cache.Store
	front   *ristretto.Cache
	fills   singleflight.Group
	ttl     time.Duration

	// generation advances on every write. A fill only populates the front
	// when no write happened since it started reading the backing store.
	mu         sync.Mutex
	generation uint64

	hits   *atomic.Int64
	misses *atomic.Int64
}

type fillResult struct {
	value   string
	present bool
}

// New wraps backing with an in-memory front.
func New(backing cache.Store, opts ...Option) (*Store, error) {
	if backing == nil {
		return nil, fmt.Errorf("new layered store: nil backing store")
	}
	resolved := options{maxEntries: defaultMaxEntries, ttl: defaultTTL}
	for _, opt := range opts {
		opt(&resolved)
	}

	front, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: resolved.maxEntries * 10,
		MaxCost:     resolved.maxEntries,
		BufferItems: bufferItems,
		// Cost counts entries, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("new layered store: create ristretto cache: %w", err)
	}

	return &Store{
		backing: backing,
		front:   front,
		ttl:     resolved.ttl,
		hits:    atomic.NewInt64(0),
		misses:  atomic.NewInt64(0),
	}, nil
}

// Stats returns a snapshot of hit and miss counters.
func (s *Store) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

// Close releases the front cache and closes the backing store when it owns resources.
func (s *Store) Close() error {
	s.front.Close()
	if closer, ok := s.backing.(cache.Closer); ok {
		return closer.Close()
	}

	return nil
}

func (s *Store) load(ctx context.Context, key string) (fillResult, error) {
	if cached, found := s.front.Get(key); found {
		if value, ok := cached.(string); ok {
			s.hits.Inc()
			return fillResult{value: value, present: true}, nil
		}
	}
	s.misses.Inc()

	shared, err, _ := s.fills.Do(key, func() (any, error) {
		started := s.currentGeneration()
		exists, err := s.backing.Has(ctx, key)
		if err != nil {
			return fillResult{}, err
		}
		if !exists {
			return fillResult{}, nil
		}
		value, err := s.backing.Get(ctx, key, "")
		if err != nil {
			return fillResult{}, err
		}
		s.remember(started, key, value)

		return fillResult{value: value, present: true}, nil
	})
	if err != nil {
		return fillResult{}, err
	}

	return shared.(fillResult), nil
}

func (s *Store) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generation
}

func (s *Store) remember(started uint64, key string, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != started {
		return
	}
	s.front.SetWithTTL(key, value, 1, s.ttl)
}

// invalidate must run after the backing write so that fills started before
// the write never populate the front afterwards.
func (s *Store) invalidate(keys ...string) {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()

	for _, key := range keys {
		s.fills.Forget(key)
	}
	s.front.Wait()
	for _, key := range keys {
		s.front.Del(key)
	}
}

// Get serves from memory when possible and fills from the backing store otherwise.
func (s *Store) Get(ctx context.Context, key string, fallback string) (string, error) {
	if err := cache.ValidateKey(key); err != nil {
		return "", err
	}
	result, err := s.load(ctx, key)
	if err != nil {
		return "", fmt.Errorf("layered get %s: %w", key, err)
	}
	if !result.present {
		return fallback, nil
	}

	return result.value, nil
}

// Set writes through to the backing store and drops the memory copy.
func (s *Store) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	err := s.backing.Set(ctx, key, value, ttl)
	s.invalidate(key)
	if err != nil {
		return fmt.Errorf("layered set %s: %w", key, err)
	}

	return nil
}

// Delete removes key from both layers.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.backing.Delete(ctx, key)
	s.invalidate(key)
	if err != nil {
		return fmt.Errorf("layered delete %s: %w", key, err)
	}

	return nil
}

// Clear clears the backing namespace and the whole memory layer.
func (s *Store) Clear(ctx context.Context) error {
	err := s.backing.Clear(ctx)
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
	s.front.Wait()
	s.front.Clear()
	if err != nil {
		return fmt.Errorf("layered clear: %w", err)
	}

	return nil
}

// Keys delegates to the backing store when it can enumerate keys.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	lister, ok := s.backing.(cache.Lister)
	if !ok {
		return nil, fmt.Errorf("layered keys: backing store %T cannot list keys", s.backing)
	}

	return lister.Keys(ctx)
}

// GetMultiple reads every key through the memory layer.
func (s *Store) GetMultiple(ctx context.Context, keys []string, fallback string) (map[string]string, error) {
	return cache.GetEach(ctx, keys, fallback, s.Get)
}

// SetMultiple writes every entry, attempting all of them.
func (s *Store) SetMultiple(ctx context.Context, values map[string]string, ttl time.Duration) error {
	return cache.SetEach(ctx, values, ttl, s.Set)
}

// DeleteMultiple removes every key, attempting all of them.
func (s *Store) DeleteMultiple(ctx context.Context, keys []string) error {
	return cache.DeleteEach(ctx, keys, s.Delete)
}

// Has answers from memory when the key is cached.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if err := cache.ValidateKey(key); err != nil {
		return false, err
	}
	result, err := s.load(ctx, key)
	if err != nil {
		return false, fmt.Errorf("layered has %s: %w", key, err)
	}

	return result.present, nil
}

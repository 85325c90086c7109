package cache

import (
	"context"
	"fmt"
	"time"
)

// Typed decorates a Store with a Codec so callers exchange T values instead of
// raw strings.
type Typed[T any] struct {
	store Store
	codec Codec
}

// NewTyped wraps store with codec. A nil codec selects JSONCodec.
func NewTyped[T any](store Store, codec Codec) *Typed[T] {
	if codec == nil {
		codec = JSONCodec{}
	}

	return &Typed[T]{store: store, codec: codec}
}

// Store returns the wrapped raw store.
func (t *Typed[T]) Store() Store {
	return t.store
}

// Get decodes the value stored under key. The boolean result is false when the
// key is absent, in which case the zero T is returned.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T

	exists, err := t.store.Has(ctx, key)
	if err != nil {
		return zero, false, fmt.Errorf("typed get %s: %w", key, err)
	}
	if !exists {
		return zero, false, nil
	}

	raw, err := t.store.Get(ctx, key, "")
	if err != nil {
		return zero, false, fmt.Errorf("typed get %s: %w", key, err)
	}

	var value T
	if err := t.codec.Decode(raw, &value); err != nil {
		return zero, true, fmt.Errorf("typed get %s: %w", key, err)
	}

	return value, true, nil
}

// Set encodes value and stores it under key.
func (t *Typed[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	raw, err := t.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("typed set %s: %w", key, err)
	}
	if err := t.store.Set(ctx, key, raw, ttl); err != nil {
		return fmt.Errorf("typed set %s: %w", key, err)
	}

	return nil
}

// Has reports whether key holds a value.
func (t *Typed[T]) Has(ctx context.Context, key string) (bool, error) {
	return t.store.Has(ctx, key)
}

// Delete removes key.
func (t *Typed[T]) Delete(ctx context.Context, key string) error {
	return t.store.Delete(ctx, key)
}

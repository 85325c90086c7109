// Package cache defines the durable key/value storage contract shared by all
// cache backends and the codec decorators layered on top of them.
package cache

import (
	"context"
	"time"
)

// Store is a string key/value store.
//
// Absence of a key is never an error: Get returns the caller fallback and Has
// reports false. Has followed by Get or Delete is not atomic; a concurrent
// writer may change the entry between the two calls.
type Store interface {
	// Get returns the stored value or fallback when the key is absent.
	Get(ctx context.Context, key string, fallback string) (string, error)
	// Set stores value under key, overwriting any previous value.
	// A zero ttl means no expiry. Backends without expiry support ignore ttl.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Delete removes key. Deleting an absent key succeeds.
	Delete(ctx context.Context, key string) error
	// Clear removes every entry of this store's namespace and nothing else.
	Clear(ctx context.Context) error
	// GetMultiple applies Get to every key.
	GetMultiple(ctx context.Context, keys []string, fallback string) (map[string]string, error)
	// SetMultiple applies Set to every entry. Every entry is attempted; failures
	// are joined into the returned error.
	SetMultiple(ctx context.Context, values map[string]string, ttl time.Duration) error
	// DeleteMultiple applies Delete to every key with the same policy as SetMultiple.
	DeleteMultiple(ctx context.Context, keys []string) error
	// Has reports whether key currently holds a value.
	Has(ctx context.Context, key string) (bool, error)
}

// Lister is implemented by stores able to enumerate their keys.
type Lister interface {
	// Keys returns every key of the store namespace in sorted order.
	Keys(ctx context.Context) ([]string, error)
}

// Closer is implemented by stores owning external resources.
type Closer interface {
	Close() error
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// GetEach implements GetMultiple on top of a single-key getter.
func GetEach(
	ctx context.Context,
	keys []string,
	fallback string,
	get func(context.Context, string, string) (string, error),
) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		value, err := get(ctx, key, fallback)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		values[key] = value
	}

	return values, nil
}

// SetEach implements best-effort SetMultiple on top of a single-key setter.
func SetEach(
	ctx context.Context,
	values map[string]string,
	ttl time.Duration,
	set func(context.Context, string, string, time.Duration) error,
) error {
	var setErr error
	for key, value := range values {
		if err := ctx.Err(); err != nil {
			return errors.Join(setErr, err)
		}
		if err := set(ctx, key, value, ttl); err != nil {
			setErr = errors.Join(setErr, fmt.Errorf("set %s: %w", key, err))
		}
	}

	return setErr
}

// DeleteEach implements best-effort DeleteMultiple on top of a single-key delete.
func DeleteEach(
	ctx context.Context,
	keys []string,
	del func(context.Context, string) error,
) error {
	var deleteErr error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return errors.Join(deleteErr, err)
		}
		if err := del(ctx, key); err != nil {
			deleteErr = errors.Join(deleteErr, fmt.Errorf("delete %s: %w", key, err))
		}
	}

	return deleteErr
}

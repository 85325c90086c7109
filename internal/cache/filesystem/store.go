// Package filesystem implements cache.Store with one file per key under a root
// directory. Entry files are named <key>.cache and hold the raw value.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"scorebot/pkg/cache"
)

const (
	entryExtension = ".cache"
	tempPattern    = ".tmp-*"
	dirPerm        = 0o755
	filePerm       = 0o644
)

// Store is a directory-backed cache.Store. It does not coordinate with other
// processes sharing the same directory.
type Store struct {
	root string
}

// New opens a store rooted at dir, creating the directory when missing.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("new filesystem store: empty root")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("new filesystem store %s: %w", dir, err)
	}

	return &Store{root: dir}, nil
}

// Root returns the directory holding entry files.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) path(key string) (string, error) {
	if err := cache.ValidateKey(key); err != nil {
		return "", err
	}

	return filepath.Join(s.root, key+entryExtension), nil
}

// Get returns the file content for key or fallback when the file is absent.
func (s *Store) Get(ctx context.Context, key string, fallback string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.path(key)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("read entry %s: %w", key, err)
	}

	return string(data), nil
}

// Set writes value through a temp file and rename so readers never observe a
// partially written entry. ttl is ignored.
func (s *Store) Set(ctx context.Context, key string, value string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp entry %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write entry %s: %w", key, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod entry %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close entry %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("commit entry %s: %w", key, err)
	}

	return nil
}

// Delete removes the entry file; a missing file is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete entry %s: %w", key, err)
	}

	return nil
}

// Clear removes every *.cache file directly under the root. Other files and
// subdirectories are left alone.
func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	if err := cache.DeleteEach(ctx, keys, s.Delete); err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	return nil
}

// Keys lists every entry key in sorted order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read root %s: %w", s.root, err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, entryExtension) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, entryExtension))
	}
	sort.Strings(keys)

	return keys, nil
}

// GetMultiple reads every key.
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

// Has reports whether the entry file exists.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.path(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat entry %s: %w", key, err)
	}

	return !info.IsDir(), nil
}

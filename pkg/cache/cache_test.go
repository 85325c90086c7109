package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "plain key", key: "tracker-42"},
		{name: "negative channel id", key: "tracker--100123"},
		{name: "empty key", key: "", wantErr: true},
		{name: "blank key", key: "  ", wantErr: true},
		{name: "slash", key: "a/b", wantErr: true},
		{name: "backslash", key: `a\b`, wantErr: true},
		{name: "parent reference", key: "..", wantErr: true},
		{name: "embedded parent reference", key: "a..b", wantErr: true},
		{name: "nul byte", key: "a\x00b", wantErr: true},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateKey(testCase.key)
			if testCase.wantErr && !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("error = %v, want ErrInvalidKey", err)
			}
			if !testCase.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTypedRoundTrip(t *testing.T) {
	t.Parallel()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	store := newMapStore()
	typed := NewTyped[payload](store, nil)
	ctx := context.Background()

	if _, found, err := typed.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("get missing = found %v err %v, want not found", found, err)
	}
	if err := typed.Set(ctx, "k", payload{Name: "a", Count: 3}, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if raw := store.values["k"]; raw != `{"name":"a","count":3}` {
		t.Fatalf("stored raw = %q", raw)
	}
	got, found, err := typed.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("get = found %v err %v", found, err)
	}
	if got.Name != "a" || got.Count != 3 {
		t.Fatalf("got = %+v", got)
	}
}

func TestTypedGetMalformed(t *testing.T) {
	t.Parallel()

	store := newMapStore()
	store.values["k"] = "{not json"
	typed := NewTyped[map[string]int](store, JSONCodec{})

	_, found, err := typed.Get(context.Background(), "k")
	if !errors.Is(err, ErrDeserialization) {
		t.Fatalf("error = %v, want ErrDeserialization", err)
	}
	if !found {
		t.Fatal("found = false, want true for present but malformed entry")
	}
}

func TestRawCodec(t *testing.T) {
	t.Parallel()

	store := newMapStore()
	typed := NewTyped[string](store, RawCodec{})
	ctx := context.Background()

	if err := typed.Set(ctx, "k", "plain text", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, _, err := typed.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != "plain text" {
		t.Fatalf("got = %q, want plain text", got)
	}
	if _, err := (RawCodec{}).Encode(12); !errors.Is(err, ErrSerialization) {
		t.Fatalf("encode int error = %v, want ErrSerialization", err)
	}
}

func TestSetEachAttemptsEveryKey(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	var (
		mu        sync.Mutex
		attempted []string
	)
	err := SetEach(context.Background(), map[string]string{"a": "1", "b": "2", "c": "3"}, 0,
		func(_ context.Context, key string, _ string, _ time.Duration) error {
			mu.Lock()
			attempted = append(attempted, key)
			mu.Unlock()
			if key != "b" {
				return errBoom
			}
			return nil
		},
	)
	if !errors.Is(err, errBoom) {
		t.Fatalf("error = %v, want joined boom", err)
	}
	sort.Strings(attempted)
	if len(attempted) != 3 {
		t.Fatalf("attempted = %v, want every key", attempted)
	}
}

func TestDeleteEachAttemptsEveryKey(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	attempted := 0
	err := DeleteEach(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, key string) error {
		attempted++
		if key == "a" {
			return errBoom
		}
		return nil
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if attempted != 3 {
		t.Fatalf("attempted = %d, want 3", attempted)
	}
}

func TestGetEachAppliesFallback(t *testing.T) {
	t.Parallel()

	store := newMapStore()
	store.values["a"] = "1"
	values, err := GetEach(context.Background(), []string{"a", "b"}, "none", store.Get)
	if err != nil {
		t.Fatalf("get each failed: %v", err)
	}
	if values["a"] != "1" || values["b"] != "none" {
		t.Fatalf("values = %v", values)
	}
}

type mapStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMapStore() *mapStore {
	return &mapStore{values: make(map[string]string)}
}

func (s *mapStore) Get(_ context.Context, key string, fallback string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value, ok := s.values[key]; ok {
		return value, nil
	}
	return fallback, nil
}

func (s *mapStore) Set(_ context.Context, key string, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *mapStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *mapStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return nil
}

func (s *mapStore) GetMultiple(ctx context.Context, keys []string, fallback string) (map[string]string, error) {
	return GetEach(ctx, keys, fallback, s.Get)
}

func (s *mapStore) SetMultiple(ctx context.Context, values map[string]string, ttl time.Duration) error {
	return SetEach(ctx, values, ttl, s.Set)
}

func (s *mapStore) DeleteMultiple(ctx context.Context, keys []string) error {
	return DeleteEach(ctx, keys, s.Delete)
}

func (s *mapStore) Has(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok, nil
}

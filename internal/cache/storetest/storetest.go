// Package storetest holds the behavioral suite every cache.Store backend must pass.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"scorebot/pkg/cache"
)

// Factory opens a fresh, empty store for one subtest.
type Factory func(t *testing.T) cache.Store

// Run executes the shared store contract against stores produced by factory.
func Run(t *testing.T, factory Factory) {
	t.Helper()

	tests := []struct {
		name string
		run  func(t *testing.T, store cache.Store)
	}{
		{name: "absent key returns fallback", run: testAbsentFallback},
		{name: "set overwrites", run: testOverwrite},
		{name: "delete absent key succeeds", run: testDeleteAbsent},
		{name: "has tracks presence", run: testHas},
		{name: "clear empties namespace", run: testClear},
		{name: "bulk operations", run: testBulk},
		{name: "invalid key rejected", run: testInvalidKey},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			testCase.run(t, factory(t))
		})
	}
}

func testAbsentFallback(t *testing.T, store cache.Store) {
	value, err := store.Get(context.Background(), "missing", "fallback")
	if err != nil {
		t.Fatalf("get missing failed: %v", err)
	}
	if value != "fallback" {
		t.Fatalf("value = %q, want fallback", value)
	}
}

func testOverwrite(t *testing.T, store cache.Store) {
	ctx := context.Background()
	if err := store.Set(ctx, "k", "first", 0); err != nil {
		t.Fatalf("set first failed: %v", err)
	}
	if err := store.Set(ctx, "k", "second", 0); err != nil {
		t.Fatalf("set second failed: %v", err)
	}
	value, err := store.Get(ctx, "k", "")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != "second" {
		t.Fatalf("value = %q, want second", value)
	}
}

func testDeleteAbsent(t *testing.T, store cache.Store) {
	if err := store.Delete(context.Background(), "never-set"); err != nil {
		t.Fatalf("delete absent key: %v", err)
	}
}

func testHas(t *testing.T, store cache.Store) {
	ctx := context.Background()
	exists, err := store.Has(ctx, "k")
	if err != nil || exists {
		t.Fatalf("has before set = %v, %v", exists, err)
	}
	if err := store.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	exists, err = store.Has(ctx, "k")
	if err != nil || !exists {
		t.Fatalf("has after set = %v, %v", exists, err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	exists, err = store.Has(ctx, "k")
	if err != nil || exists {
		t.Fatalf("has after delete = %v, %v", exists, err)
	}
}

func testClear(t *testing.T, store cache.Store) {
	ctx := context.Background()
	if err := store.SetMultiple(ctx, map[string]string{"a": "1", "b": "2"}, 0); err != nil {
		t.Fatalf("set multiple failed: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	for _, key := range []string{"a", "b"} {
		exists, err := store.Has(ctx, key)
		if err != nil {
			t.Fatalf("has %s failed: %v", key, err)
		}
		if exists {
			t.Fatalf("key %s survived clear", key)
		}
	}
	if lister, ok := store.(cache.Lister); ok {
		keys, err := lister.Keys(ctx)
		if err != nil {
			t.Fatalf("keys failed: %v", err)
		}
		if len(keys) != 0 {
			t.Fatalf("keys after clear = %v", keys)
		}
	}
}

func testBulk(t *testing.T, store cache.Store) {
	ctx := context.Background()
	if err := store.SetMultiple(ctx, map[string]string{"a": "1", "b": "2", "c": "3"}, 0); err != nil {
		t.Fatalf("set multiple failed: %v", err)
	}

	got, err := store.GetMultiple(ctx, []string{"a", "b", "z"}, "-")
	if err != nil {
		t.Fatalf("get multiple failed: %v", err)
	}
	want := map[string]string{"a": "1", "b": "2", "z": "-"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("get multiple mismatch (-want +got):\n%s", diff)
	}

	if lister, ok := store.(cache.Lister); ok {
		keys, err := lister.Keys(ctx)
		if err != nil {
			t.Fatalf("keys failed: %v", err)
		}
		if diff := cmp.Diff([]string{"a", "b", "c"}, keys); diff != "" {
			t.Fatalf("keys mismatch (-want +got):\n%s", diff)
		}
	}

	if err := store.DeleteMultiple(ctx, []string{"a", "c", "missing"}); err != nil {
		t.Fatalf("delete multiple failed: %v", err)
	}
	got, err = store.GetMultiple(ctx, []string{"a", "b", "c"}, "")
	if err != nil {
		t.Fatalf("get multiple after delete failed: %v", err)
	}
	want = map[string]string{"a": "", "b": "2", "c": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("after delete mismatch (-want +got):\n%s", diff)
	}
}

func testInvalidKey(t *testing.T, store cache.Store) {
	err := store.Set(context.Background(), "../escape", "v", 0)
	if !errors.Is(err, cache.ErrInvalidKey) {
		t.Fatalf("set invalid key error = %v, want ErrInvalidKey", err)
	}
}

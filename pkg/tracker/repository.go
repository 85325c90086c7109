package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"scorebot/pkg/cache"
)

const keyPrefix = "tracker-"

// Key returns the cache key holding channelID's tracker.
func Key(channelID string) string {
	return keyPrefix + channelID
}

// ChannelFromKey reverses Key. ok is false for keys outside the tracker namespace.
func ChannelFromKey(key string) (string, bool) {
	channelID, ok := strings.CutPrefix(key, keyPrefix)
	if !ok || channelID == "" {
		return "", false
	}

	return channelID, true
}

// Repository loads and stores trackers through a cache.Store.
//
// Update serializes load-mutate-save per channel inside one process; it does
// not coordinate with other processes sharing the store.
type Repository struct {
	records *cache.Typed[Record]
	logger  *slog.Logger
	now     func() time.Time
	locks   *keyedMutex
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithLogger sets the logger receiving corrupt-record warnings.
func WithLogger(logger *slog.Logger) RepositoryOption {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRepositoryClock overrides the time source for new and mutated trackers.
func WithRepositoryClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRepository stores tracker records as JSON in store.
func NewRepository(store cache.Store, opts ...RepositoryOption) *Repository {
	repo := &Repository{
		records: cache.NewTyped[Record](store, cache.JSONCodec{}),
		logger:  slog.Default(),
		now:     time.Now,
		locks:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(repo)
	}

	return repo
}

// Exists reports whether channelID has a stored tracker.
func (r *Repository) Exists(ctx context.Context, channelID string) (bool, error) {
	exists, err := r.records.Has(ctx, Key(channelID))
	if err != nil {
		return false, fmt.Errorf("tracker exists %s: %w", channelID, err)
	}

	return exists, nil
}

// Load returns channelID's tracker. An absent entry yields a fresh tracker.
// An undecodable or invalid entry is logged and also yields a fresh tracker, so
// a corrupt record is overwritten by the next save. Storage errors propagate.
func (r *Repository) Load(ctx context.Context, channelID string) (*Tracker, error) {
	fresh := func() (*Tracker, error) {
		return New(channelID, WithClock(r.now))
	}

	record, found, err := r.records.Get(ctx, Key(channelID))
	if errors.Is(err, cache.ErrDeserialization) {
		r.logger.WarnContext(ctx, "discarding undecodable tracker record",
			"channel_id", channelID,
			"error", err,
		)
		return fresh()
	}
	if err != nil {
		return nil, fmt.Errorf("load tracker %s: %w", channelID, err)
	}
	if !found {
		return fresh()
	}

	restored, err := FromRecord(record, WithClock(r.now))
	if err != nil {
		r.logger.WarnContext(ctx, "discarding invalid tracker record",
			"channel_id", channelID,
			"error", err,
		)
		return fresh()
	}
	if restored.ID() != channelID {
		r.logger.WarnContext(ctx, "tracker record id does not match its key",
			"channel_id", channelID,
			"record_id", restored.ID(),
		)
	}

	return restored, nil
}

// Save persists t under its channel key.
func (r *Repository) Save(ctx context.Context, t *Tracker) error {
	if t == nil {
		return fmt.Errorf("save tracker: nil tracker")
	}
	if err := r.records.Set(ctx, Key(t.ID()), t.Record(), 0); err != nil {
		return fmt.Errorf("save tracker %s: %w", t.ID(), err)
	}

	return nil
}

// Delete removes channelID's tracker.
func (r *Repository) Delete(ctx context.Context, channelID string) error {
	if err := r.records.Delete(ctx, Key(channelID)); err != nil {
		return fmt.Errorf("delete tracker %s: %w", channelID, err)
	}

	return nil
}

// DeleteMany removes every listed channel, attempting all of them.
func (r *Repository) DeleteMany(ctx context.Context, channelIDs []string) error {
	keys := make([]string, 0, len(channelIDs))
	for _, channelID := range channelIDs {
		keys = append(keys, Key(channelID))
	}
	if err := r.records.Store().DeleteMultiple(ctx, keys); err != nil {
		return fmt.Errorf("delete trackers: %w", err)
	}

	return nil
}

// Mutation changes a loaded tracker. existed reports whether a record was
// stored before the call. Returning an error aborts the save.
type Mutation func(t *Tracker, existed bool) error

// Update runs mutate against channelID's tracker and saves the result. Calls
// for the same channel are serialized.
func (r *Repository) Update(ctx context.Context, channelID string, mutate Mutation) (*Tracker, error) {
	release := r.locks.lock(channelID)
	defer release()

	existed, err := r.Exists(ctx, channelID)
	if err != nil {
		return nil, err
	}
	current, err := r.Load(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if err := mutate(current, existed); err != nil {
		return nil, err
	}
	if err := r.Save(ctx, current); err != nil {
		return nil, err
	}

	return current, nil
}

// All loads every stored tracker sorted by channel id. The store must
// implement cache.Lister.
func (r *Repository) All(ctx context.Context) ([]*Tracker, error) {
	lister, ok := r.records.Store().(cache.Lister)
	if !ok {
		return nil, fmt.Errorf("list trackers: store %T cannot list keys", r.records.Store())
	}
	keys, err := lister.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list trackers: %w", err)
	}

	channelIDs := make([]string, 0, len(keys))
	for _, key := range keys {
		if channelID, ok := ChannelFromKey(key); ok {
			channelIDs = append(channelIDs, channelID)
		}
	}
	sort.Strings(channelIDs)

	trackers := make([]*Tracker, 0, len(channelIDs))
	for _, channelID := range channelIDs {
		loaded, err := r.Load(ctx, channelID)
		if err != nil {
			return nil, err
		}
		trackers = append(trackers, loaded)
	}

	return trackers, nil
}

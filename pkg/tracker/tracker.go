package tracker

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"scorebot/pkg/cache"
)

// Tracker is the persisted score of one channel.
type Tracker struct {
	id           string
	score        Score
	lastModified time.Time
	now          func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source used to stamp modifications.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates an empty tracker for id stamped with the current time.
func New(id string, opts ...Option) (*Tracker, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("new tracker: %w: empty id", ErrInvalidTrackerData)
	}

	t := &Tracker{id: id, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.touch()

	return t, nil
}

// ID returns the channel identifier.
func (t *Tracker) ID() string {
	return t.id
}

// Score returns a copy of the current score.
func (t *Tracker) Score() Score {
	return t.score
}

// LastModified returns the time of the last score mutation, at millisecond precision.
func (t *Tracker) LastModified() time.Time {
	return t.lastModified
}

// AddScore merges score into the tracker and refreshes the modification time.
func (t *Tracker) AddScore(score Score) {
	t.score.Merge(score)
	t.touch()
}

// SetScore replaces the score and refreshes the modification time.
func (t *Tracker) SetScore(score Score) {
	t.score = score
	t.touch()
}

func (t *Tracker) touch() {
	t.lastModified = time.UnixMilli(t.now().UnixMilli())
}

// Record is the persisted form of a Tracker.
type Record struct {
	ID        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	Score     ScoreRecord `json:"score"`
}

// ScoreRecord is the persisted form of a Score.
type ScoreRecord struct {
	Victories uint `json:"victories"`
	Defeats   uint `json:"defeats"`
}

// UnmarshalJSON accepts both the current field names and the nbVictory/nbDefeat
// names written by older deployments. Missing counters decode as zero.
func (r *ScoreRecord) UnmarshalJSON(data []byte) error {
	var wire struct {
		Victories       *uint `json:"victories"`
		Defeats         *uint `json:"defeats"`
		LegacyVictories *uint `json:"nbVictory"`
		LegacyDefeats   *uint `json:"nbDefeat"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = ScoreRecord{
		Victories: firstCount(wire.Victories, wire.LegacyVictories),
		Defeats:   firstCount(wire.Defeats, wire.LegacyDefeats),
	}

	return nil
}

func firstCount(values ...*uint) uint {
	for _, value := range values {
		if value != nil {
			return *value
		}
	}

	return 0
}

// Record returns the persisted form of t.
func (t *Tracker) Record() Record {
	return Record{
		ID:        t.id,
		Timestamp: t.lastModified.UnixMilli(),
		Score: ScoreRecord{
			Victories: t.score.victories,
			Defeats:   t.score.defeats,
		},
	}
}

// FromRecord restores a tracker without touching its persisted timestamp.
// A record without timestamp is stamped with the current time.
func FromRecord(record Record, opts ...Option) (*Tracker, error) {
	if strings.TrimSpace(record.ID) == "" {
		return nil, fmt.Errorf("restore tracker: %w: missing id", ErrInvalidTrackerData)
	}

	t, err := New(record.ID, opts...)
	if err != nil {
		return nil, err
	}
	t.score.Merge(NewScore(record.Score.Victories, record.Score.Defeats))
	if record.Timestamp != 0 {
		t.lastModified = time.UnixMilli(record.Timestamp)
	}

	return t, nil
}

// Marshal encodes t as its JSON record.
func (t *Tracker) Marshal() (string, error) {
	return cache.JSONCodec{}.Encode(t.Record())
}

// Unmarshal decodes a JSON record. Malformed JSON fails with
// cache.ErrDeserialization; a record without id fails with ErrInvalidTrackerData.
func Unmarshal(data string, opts ...Option) (*Tracker, error) {
	var record Record
	if err := (cache.JSONCodec{}).Decode(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal tracker: %w", err)
	}

	return FromRecord(record, opts...)
}

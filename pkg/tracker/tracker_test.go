package tracker

import (
	"errors"
	"testing"
	"time"

	"scorebot/pkg/cache"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)}
}

func TestNewRejectsEmptyID(t *testing.T) {
	t.Parallel()

	if _, err := New(""); !errors.Is(err, ErrInvalidTrackerData) {
		t.Fatalf("error = %v, want ErrInvalidTrackerData", err)
	}
}

func TestTrackerMutationsRefreshTimestamp(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tr, err := New("42", WithClock(clock.Now))
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	created := tr.LastModified()
	if created.UnixMilli() != clock.now.UnixMilli() {
		t.Fatalf("created = %v, want %v", created, clock.now)
	}

	clock.Advance(time.Second)
	tr.AddScore(NewScore(1, 2))
	if !tr.LastModified().After(created) {
		t.Fatal("AddScore did not refresh timestamp")
	}
	if tr.Score() != NewScore(1, 2) {
		t.Fatalf("score = %v, want 1-2", tr.Score())
	}

	added := tr.LastModified()
	clock.Advance(time.Second)
	tr.SetScore(NewScore(5, 0))
	if !tr.LastModified().After(added) {
		t.Fatal("SetScore did not refresh timestamp")
	}
	if tr.Score() != NewScore(5, 0) {
		t.Fatalf("score = %v, want 5-0", tr.Score())
	}
}

func TestTrackerRoundTrip(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	original, err := New("-100123", WithClock(clock.Now))
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	original.AddScore(NewScore(7, 3))

	data, err := original.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	clock.Advance(time.Hour)
	restored, err := Unmarshal(data, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.ID() != original.ID() {
		t.Fatalf("id = %q, want %q", restored.ID(), original.ID())
	}
	if restored.Score() != original.Score() {
		t.Fatalf("score = %v, want %v", restored.Score(), original.Score())
	}
	if !restored.LastModified().Equal(original.LastModified()) {
		t.Fatalf("timestamp = %v, want persisted %v", restored.LastModified(), original.LastModified())
	}
}

func TestUnmarshal(t *testing.T) {
	clock := newFakeClock()

	tests := []struct {
		name         string
		data         string
		wantErr      error
		wantScore    Score
		wantStamp    int64
		wantNowStamp bool
	}{
		{
			name:      "current format",
			data:      `{"id":"1","timestamp":1700000000000,"score":{"victories":3,"defeats":4}}`,
			wantScore: NewScore(3, 4),
			wantStamp: 1700000000000,
		},
		{
			name:      "legacy counters",
			data:      `{"id":"1","timestamp":1700000000000,"score":{"nbVictory":2,"nbDefeat":1}}`,
			wantScore: NewScore(2, 1),
			wantStamp: 1700000000000,
		},
		{
			name:      "missing counters default to zero",
			data:      `{"id":"1","timestamp":5,"score":{"victories":9}}`,
			wantScore: NewScore(9, 0),
			wantStamp: 5,
		},
		{
			name:         "missing score and timestamp",
			data:         `{"id":"1"}`,
			wantScore:    NewScore(0, 0),
			wantNowStamp: true,
		},
		{
			name:    "missing id",
			data:    `{"timestamp":5,"score":{"victories":1,"defeats":1}}`,
			wantErr: ErrInvalidTrackerData,
		},
		{
			name:    "null id",
			data:    `{"id":null,"score":{}}`,
			wantErr: ErrInvalidTrackerData,
		},
		{
			name:    "malformed json",
			data:    `{"id":`,
			wantErr: cache.ErrDeserialization,
		},
		{
			name:    "negative counter",
			data:    `{"id":"1","score":{"victories":-1}}`,
			wantErr: cache.ErrDeserialization,
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got, err := Unmarshal(testCase.data, WithClock(clock.Now))
			if testCase.wantErr != nil {
				if !errors.Is(err, testCase.wantErr) {
					t.Fatalf("error = %v, want %v", err, testCase.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Score() != testCase.wantScore {
				t.Fatalf("score = %v, want %v", got.Score(), testCase.wantScore)
			}
			wantStamp := testCase.wantStamp
			if testCase.wantNowStamp {
				wantStamp = clock.now.UnixMilli()
			}
			if got.LastModified().UnixMilli() != wantStamp {
				t.Fatalf("timestamp = %d, want %d", got.LastModified().UnixMilli(), wantStamp)
			}
		})
	}
}

func TestRecordLayout(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.UnixMilli(1700000000000)}
	tr, err := New("42", WithClock(clock.Now))
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	tr.SetScore(NewScore(1, 2))

	data, err := tr.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":"42","timestamp":1700000000000,"score":{"victories":1,"defeats":2}}`
	if data != want {
		t.Fatalf("record = %s, want %s", data, want)
	}
}

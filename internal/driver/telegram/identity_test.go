package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
)

func TestChatIDRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		peer     tg.PeerClass
		wantID   string
		wantKind PeerKind
		wantRaw  int64
	}{
		{name: "user", peer: &tg.PeerUser{UserID: 42}, wantID: "42", wantKind: PeerKindUser, wantRaw: 42},
		{name: "basic group", peer: &tg.PeerChat{ChatID: 789}, wantID: "-789", wantKind: PeerKindChat, wantRaw: 789},
		{
			name:     "channel",
			peer:     &tg.PeerChannel{ChannelID: 789},
			wantID:   "-1000000000789",
			wantKind: PeerKindChannel,
			wantRaw:  789,
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			id, err := ChatID(testCase.peer)
			if err != nil {
				t.Fatalf("ChatID failed: %v", err)
			}
			if id != testCase.wantID {
				t.Fatalf("chat id = %q, want %q", id, testCase.wantID)
			}

			kind, raw, err := ParseChatID(id)
			if err != nil {
				t.Fatalf("ParseChatID failed: %v", err)
			}
			if kind != testCase.wantKind || raw != testCase.wantRaw {
				t.Fatalf("parsed = %s %d, want %s %d", kind, raw, testCase.wantKind, testCase.wantRaw)
			}
		})
	}
}

func TestParseChatIDRejectsInvalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "abc", "0", "-1000000000000"} {
		if _, _, err := ParseChatID(raw); err == nil {
			t.Fatalf("ParseChatID(%q) error = nil, want error", raw)
		}
	}
	if _, err := ChatID(nil); err == nil {
		t.Fatal("ChatID(nil) error = nil, want error")
	}
}

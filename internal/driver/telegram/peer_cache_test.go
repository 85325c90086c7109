package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
)

func TestPeerCacheRememberEntitiesAndResolve(t *testing.T) {
	t.Parallel()

	cache := NewPeerCache()
	cache.RememberEntities(tg.Entities{
		Users: map[int64]*tg.User{
			7: {ID: 7, AccessHash: 70},
		},
		Channels: map[int64]*tg.Channel{
			55: {ID: 55, AccessHash: 550},
		},
	})

	tests := []struct {
		name   string
		chatID string
		check  func(t *testing.T, peer tg.InputPeerClass)
	}{
		{
			name:   "user keeps access hash",
			chatID: "7",
			check: func(t *testing.T, peer tg.InputPeerClass) {
				user, ok := peer.(*tg.InputPeerUser)
				if !ok || user.UserID != 7 || user.AccessHash != 70 {
					t.Fatalf("peer = %#v, want user 7 hash 70", peer)
				}
			},
		},
		{
			name:   "channel keeps access hash",
			chatID: "-1000000000055",
			check: func(t *testing.T, peer tg.InputPeerClass) {
				channel, ok := peer.(*tg.InputPeerChannel)
				if !ok || channel.ChannelID != 55 || channel.AccessHash != 550 {
					t.Fatalf("peer = %#v, want channel 55 hash 550", peer)
				}
			},
		},
		{
			name:   "basic group resolves without cache entry",
			chatID: "-12",
			check: func(t *testing.T, peer tg.InputPeerClass) {
				chat, ok := peer.(*tg.InputPeerChat)
				if !ok || chat.ChatID != 12 {
					t.Fatalf("peer = %#v, want chat 12", peer)
				}
			},
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			peer, err := cache.Resolve(testCase.chatID)
			if err != nil {
				t.Fatalf("Resolve(%s) failed: %v", testCase.chatID, err)
			}
			testCase.check(t, peer)
		})
	}
}

func TestPeerCacheResolveUnknown(t *testing.T) {
	t.Parallel()

	cache := NewPeerCache()
	for _, chatID := range []string{"99", "-1000000000099", "nope"} {
		if _, err := cache.Resolve(chatID); err == nil {
			t.Fatalf("Resolve(%s) error = nil, want error", chatID)
		}
	}
}

func TestPeerCacheRememberReturnsCopies(t *testing.T) {
	t.Parallel()

	cache := NewPeerCache()
	original := &tg.InputPeerChannel{ChannelID: 5, AccessHash: 1}
	cache.Remember("-1000000000005", original)
	original.AccessHash = 2

	peer, err := cache.Resolve("-1000000000005")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	channel := peer.(*tg.InputPeerChannel)
	if channel.AccessHash != 1 {
		t.Fatalf("access hash = %d, want 1", channel.AccessHash)
	}

	channel.AccessHash = 3
	again, _ := cache.Resolve("-1000000000005")
	if again.(*tg.InputPeerChannel).AccessHash != 1 {
		t.Fatal("resolved peer shares state with cache")
	}
}

package telegram

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/gotd/td/tg"
)

// PeerCache stores Telegram input peers discovered from inbound updates.
//
// Outbound dispatch uses it to turn a chat id back into an input peer with
// its access hash.
type PeerCache struct {
	mu     sync.RWMutex
	byChat map[string]tg.InputPeerClass
}

// NewPeerCache creates an empty, concurrency-safe Telegram peer cache.
func NewPeerCache() *PeerCache {
	return &PeerCache{
		byChat: make(map[string]tg.InputPeerClass),
	}
}

// RememberEntities ingests the users, chats, and channels attached to one
// update batch.
func (c *PeerCache) RememberEntities(entities tg.Entities) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for id, user := range entities.Users {
		if user == nil {
			continue
		}
		c.byChat[strconv.FormatInt(id, 10)] = user.AsInputPeer()
	}
	for id, chat := range entities.Chats {
		if chat == nil {
			continue
		}
		c.byChat[strconv.FormatInt(-id, 10)] = &tg.InputPeerChat{ChatID: id}
	}
	for id, channel := range entities.Channels {
		if channel == nil {
			continue
		}
		c.byChat[strconv.FormatInt(channelIDOffset-id, 10)] = channel.AsInputPeer()
	}
}

// Remember stores one explicit chat-to-peer mapping.
func (c *PeerCache) Remember(chatID string, peer tg.InputPeerClass) {
	if c == nil || peer == nil || chatID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byChat[chatID] = cloneInputPeer(peer)
}

// Resolve returns the input peer for chatID. Basic groups need no access
// hash and resolve without a cache entry.
func (c *PeerCache) Resolve(chatID string) (tg.InputPeerClass, error) {
	if c == nil {
		return nil, fmt.Errorf("resolve peer: nil cache")
	}

	c.mu.RLock()
	peer, ok := c.byChat[chatID]
	c.mu.RUnlock()
	if ok {
		return cloneInputPeer(peer), nil
	}

	kind, id, err := ParseChatID(chatID)
	if err != nil {
		return nil, fmt.Errorf("resolve peer: %w", err)
	}
	if kind == PeerKindChat {
		return &tg.InputPeerChat{ChatID: id}, nil
	}

	return nil, fmt.Errorf("resolve peer: %s %s not seen yet", kind, chatID)
}

func cloneInputPeer(peer tg.InputPeerClass) tg.InputPeerClass {
	switch typed := peer.(type) {
	case *tg.InputPeerUser:
		copyPeer := *typed
		return &copyPeer
	case *tg.InputPeerChat:
		copyPeer := *typed
		return &copyPeer
	case *tg.InputPeerChannel:
		copyPeer := *typed
		return &copyPeer
	case *tg.InputPeerSelf:
		copyPeer := *typed
		return &copyPeer
	default:
		return peer
	}
}

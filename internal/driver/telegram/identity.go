package telegram

import (
	"fmt"
	"strconv"

	"github.com/gotd/td/tg"
)

// DriverType is the configured driver type token for the Telegram runtime.
const DriverType = "telegram"

// Bot API chat ids encode the peer kind in the sign and offset: users are
// positive, basic groups are negated, and channels (including supergroups)
// are shifted below channelIDOffset.
const channelIDOffset int64 = -1000000000000

// PeerKind is the Telegram peer family encoded in a chat id.
type PeerKind int

const (
	PeerKindUser PeerKind = iota + 1
	PeerKindChat
	PeerKindChannel
)

func (k PeerKind) String() string {
	switch k {
	case PeerKindUser:
		return "user"
	case PeerKindChat:
		return "chat"
	case PeerKindChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// ChatID formats a peer as a Bot API style chat id.
func ChatID(peer tg.PeerClass) (string, error) {
	switch typed := peer.(type) {
	case *tg.PeerUser:
		return strconv.FormatInt(typed.UserID, 10), nil
	case *tg.PeerChat:
		return strconv.FormatInt(-typed.ChatID, 10), nil
	case *tg.PeerChannel:
		return strconv.FormatInt(channelIDOffset-typed.ChannelID, 10), nil
	case nil:
		return "", fmt.Errorf("format chat id: nil peer")
	default:
		return "", fmt.Errorf("format chat id: unsupported peer %s", peer.TypeName())
	}
}

// ParseChatID splits a Bot API style chat id into its peer kind and the
// raw Telegram id.
func ParseChatID(chatID string) (PeerKind, int64, error) {
	value, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse chat id %q: %w", chatID, err)
	}

	switch {
	case value > 0:
		return PeerKindUser, value, nil
	case value < channelIDOffset:
		return PeerKindChannel, channelIDOffset - value, nil
	case value < 0 && value != channelIDOffset:
		return PeerKindChat, -value, nil
	default:
		return 0, 0, fmt.Errorf("parse chat id %q: not a peer", chatID)
	}
}

package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gotd/td/tg"
)

// gotdUpdateHandler expands short message containers, which carry no entity
// lists, into full batches before handing them to the dispatcher.
type gotdUpdateHandler struct {
	dispatcher tg.UpdateDispatcher
}

func (h gotdUpdateHandler) Handle(ctx context.Context, updates tg.UpdatesClass) error {
	switch typed := updates.(type) {
	case *tg.UpdateShortMessage:
		return h.dispatcher.Handle(ctx, expandShortMessage(typed))
	case *tg.UpdateShortChatMessage:
		return h.dispatcher.Handle(ctx, expandShortChatMessage(typed))
	default:
		return h.dispatcher.Handle(ctx, updates)
	}
}

func expandShortMessage(update *tg.UpdateShortMessage) *tg.Updates {
	message := &tg.Message{
		ID:      update.ID,
		PeerID:  &tg.PeerUser{UserID: update.UserID},
		Date:    update.Date,
		Message: update.Message,
		Out:     update.Out,
	}
	message.SetFromID(&tg.PeerUser{UserID: update.UserID})

	return &tg.Updates{
		Updates: []tg.UpdateClass{&tg.UpdateNewMessage{
			Message:  message,
			Pts:      update.Pts,
			PtsCount: update.PtsCount,
		}},
		Date: update.Date,
	}
}

func expandShortChatMessage(update *tg.UpdateShortChatMessage) *tg.Updates {
	message := &tg.Message{
		ID:      update.ID,
		PeerID:  &tg.PeerChat{ChatID: update.ChatID},
		Date:    update.Date,
		Message: update.Message,
		Out:     update.Out,
	}
	message.SetFromID(&tg.PeerUser{UserID: update.FromID})

	return &tg.Updates{
		Updates: []tg.UpdateClass{&tg.UpdateNewMessage{
			Message:  message,
			Pts:      update.Pts,
			PtsCount: update.PtsCount,
		}},
		Date: update.Date,
	}
}

// mapMessage converts a new-message payload into an Update. accepted is
// false for service messages, empty texts, and the bot's own messages.
func mapMessage(raw tg.MessageClass, entities tg.Entities) (update Update, accepted bool, err error) {
	message, ok := raw.(*tg.Message)
	if !ok || message.Out || strings.TrimSpace(message.Message) == "" {
		return Update{}, false, nil
	}

	chatID, err := ChatID(message.PeerID)
	if err != nil {
		return Update{}, false, fmt.Errorf("map message %d: %w", message.ID, err)
	}

	author, hasAuthor := message.GetFromID()
	if !hasAuthor {
		author = message.PeerID
	}
	authorID, authorName := describeAuthor(author, entities)

	return Update{
		MessageID:  message.ID,
		ChatID:     chatID,
		Text:       message.Message,
		AuthorID:   authorID,
		AuthorName: authorName,
		OccurredAt: time.Unix(int64(message.Date), 0).UTC(),
	}, true, nil
}

func describeAuthor(peer tg.PeerClass, entities tg.Entities) (string, string) {
	switch typed := peer.(type) {
	case *tg.PeerUser:
		id := strconv.FormatInt(typed.UserID, 10)
		user, ok := entities.Users[typed.UserID]
		if !ok || user == nil {
			return id, ""
		}
		if user.Username != "" {
			return id, user.Username
		}
		return id, strings.TrimSpace(user.FirstName + " " + user.LastName)
	case *tg.PeerChannel:
		id, _ := ChatID(typed)
		if channel, ok := entities.Channels[typed.ChannelID]; ok && channel != nil {
			return id, channel.Title
		}
		return id, ""
	case *tg.PeerChat:
		id, _ := ChatID(typed)
		if chat, ok := entities.Chats[typed.ChatID]; ok && chat != nil {
			return id, chat.Title
		}
		return id, ""
	default:
		return "", ""
	}
}

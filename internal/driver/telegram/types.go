package telegram

import "time"

// Update is one inbound Telegram text message, already resolved to Bot API
// style identifiers.
type Update struct {
	MessageID  int
	ChatID     string
	Text       string
	AuthorID   string
	AuthorName string
	OccurredAt time.Time
}

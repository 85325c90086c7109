package scorebot

import (
	"fmt"
	"time"
)

// Message is one inbound chat message in platform-neutral form.
type Message struct {
	// ID is the platform message identifier, used to delete or reply to it.
	ID string
	// ChannelID is the stable identifier of the conversation the message was posted in.
	ChannelID string
	// Text is the raw message body.
	Text string
	// AuthorID identifies the sender when the platform exposes one.
	AuthorID string
	// AuthorName is a display name for logs.
	AuthorName string
	// Source is the configured name of the driver that received the message.
	Source string
	// ReceivedAt is when the driver observed the message.
	ReceivedAt time.Time
}

// Validate checks fields every command relies on.
func (m Message) Validate() error {
	if m.ChannelID == "" {
		return fmt.Errorf("%w: missing channel id", ErrInvalidMessage)
	}
	if m.Source == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidMessage)
	}

	return nil
}

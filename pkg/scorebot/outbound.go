package scorebot

import (
	"context"
	"fmt"
)

// ServiceOutbound is the service registry key for the outbound router.
const ServiceOutbound = "scorebot.outbound"

// Outbound sends operations to a chat platform.
type Outbound interface {
	// SendMessage posts text to the target channel.
	SendMessage(ctx context.Context, request SendMessageRequest) (*OutboundMessage, error)
	// DeleteMessage removes a message from the target channel.
	DeleteMessage(ctx context.Context, request DeleteMessageRequest) error
}

// Target identifies a channel on one driver.
type Target struct {
	// Driver is the configured driver name.
	Driver string
	// ChannelID is the destination channel.
	ChannelID string
}

// Validate checks routing fields.
func (t Target) Validate() error {
	if t.Driver == "" {
		return fmt.Errorf("%w: missing driver", ErrInvalidOutboundRequest)
	}
	if t.ChannelID == "" {
		return fmt.Errorf("%w: missing channel id", ErrInvalidOutboundRequest)
	}

	return nil
}

// TargetFromMessage answers in the channel and driver a message came from.
func TargetFromMessage(message Message) Target {
	return Target{Driver: message.Source, ChannelID: message.ChannelID}
}

// OutboundMessage identifies a message the platform accepted.
type OutboundMessage struct {
	ID     string
	Target Target
}

// SendMessageRequest describes a new text message.
type SendMessageRequest struct {
	Target Target
	Text   string
	// ReplyToMessageID optionally threads the message as a reply.
	ReplyToMessageID string
}

// Validate checks the request before dispatch.
func (r SendMessageRequest) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return fmt.Errorf("validate send message target: %w", err)
	}
	if r.Text == "" {
		return fmt.Errorf("%w: missing message text", ErrInvalidOutboundRequest)
	}

	return nil
}

// DeleteMessageRequest removes one message.
type DeleteMessageRequest struct {
	Target    Target
	MessageID string
}

// Validate checks the request before dispatch.
func (r DeleteMessageRequest) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return fmt.Errorf("validate delete message target: %w", err)
	}
	if r.MessageID == "" {
		return fmt.Errorf("%w: missing message id", ErrInvalidOutboundRequest)
	}

	return nil
}

// DeleteRequestFor builds the request removing message from its channel.
func DeleteRequestFor(message Message) DeleteMessageRequest {
	return DeleteMessageRequest{Target: TargetFromMessage(message), MessageID: message.ID}
}

// ReplyTo builds a text reply in the channel message came from.
func ReplyTo(message Message, text string) SendMessageRequest {
	return SendMessageRequest{Target: TargetFromMessage(message), Text: text}
}

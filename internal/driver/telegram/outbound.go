package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"scorebot/pkg/scorebot"

	"github.com/gotd/td/crypto"
	gotdtelegram "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/unpack"
	"github.com/gotd/td/tg"
)

const defaultOutboundTimeout = 3 * time.Second

// OutboundOption mutates outbound configuration.
type OutboundOption func(*outboundConfig)

// WithOutboundTimeout bounds each outbound RPC call.
func WithOutboundTimeout(timeout time.Duration) OutboundOption {
	return func(cfg *outboundConfig) {
		if timeout > 0 {
			cfg.rpcTimeout = timeout
		}
	}
}

// WithOutboundLogger configures structured logging for outbound operations.
func WithOutboundLogger(logger *slog.Logger) OutboundOption {
	return func(cfg *outboundConfig) {
		cfg.logger = logger
	}
}

type outboundConfig struct {
	rpcTimeout time.Duration
	logger     *slog.Logger
}

// Outbound sends replies and deletions through the Telegram API.
type Outbound struct {
	cfg      outboundConfig
	peers    *PeerCache
	telegram outboundRPC
}

// NewOutbound creates a Telegram outbound backed by client.
func NewOutbound(client *gotdtelegram.Client, peers *PeerCache, options ...OutboundOption) (*Outbound, error) {
	if client == nil {
		return nil, fmt.Errorf("new telegram outbound: nil client")
	}

	return newOutboundWithRPC(newGotdOutboundRPC(client), peers, options...)
}

func newOutboundWithRPC(rpc outboundRPC, peers *PeerCache, options ...OutboundOption) (*Outbound, error) {
	if rpc == nil {
		return nil, fmt.Errorf("new telegram outbound: nil rpc adapter")
	}
	if peers == nil {
		return nil, fmt.Errorf("new telegram outbound: nil peer cache")
	}

	cfg := outboundConfig{rpcTimeout: defaultOutboundTimeout}
	for _, option := range options {
		option(&cfg)
	}

	return &Outbound{cfg: cfg, peers: peers, telegram: rpc}, nil
}

// SendMessage posts text to a Telegram chat.
func (o *Outbound) SendMessage(
	ctx context.Context,
	request scorebot.SendMessageRequest,
) (*scorebot.OutboundMessage, error) {
	if err := request.Validate(); err != nil {
		return nil, fmt.Errorf("send message validate: %w", err)
	}

	peer, err := o.peers.Resolve(request.Target.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	replyTo := 0
	if request.ReplyToMessageID != "" {
		replyTo, err = parseMessageID(request.ReplyToMessageID)
		if err != nil {
			return nil, fmt.Errorf("send message parse reply id %s: %w", request.ReplyToMessageID, err)
		}
	}

	rpcCtx, cancel := o.withTimeout(ctx)
	defer cancel()

	id, err := o.telegram.SendText(rpcCtx, peer, request.Text, replyTo)
	if err != nil {
		return nil, fmt.Errorf("send message to %s: %w", request.Target.ChannelID, mapOutboundError(operationSend, err))
	}

	o.logOutbound(ctx, operationSend, "chat_id", request.Target.ChannelID, "message_id", id)

	return &scorebot.OutboundMessage{
		ID:     strconv.Itoa(id),
		Target: request.Target,
	}, nil
}

// DeleteMessage removes a message for every participant.
func (o *Outbound) DeleteMessage(ctx context.Context, request scorebot.DeleteMessageRequest) error {
	if err := request.Validate(); err != nil {
		return fmt.Errorf("delete message validate: %w", err)
	}

	peer, err := o.peers.Resolve(request.Target.ChannelID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	messageID, err := parseMessageID(request.MessageID)
	if err != nil {
		return fmt.Errorf("delete message parse id %s: %w", request.MessageID, err)
	}

	rpcCtx, cancel := o.withTimeout(ctx)
	defer cancel()

	if err := o.telegram.DeleteMessage(rpcCtx, peer, messageID); err != nil {
		return fmt.Errorf("delete message %s: %w", request.MessageID, mapOutboundError(operationDelete, err))
	}

	o.logOutbound(ctx, operationDelete, "chat_id", request.Target.ChannelID, "message_id", messageID)

	return nil
}

func (o *Outbound) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.rpcTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, o.cfg.rpcTimeout)
}

func (o *Outbound) logOutbound(ctx context.Context, operation string, attrs ...any) {
	if o.cfg.logger == nil {
		return
	}

	values := make([]any, 0, 2+len(attrs))
	values = append(values, "operation", operation)
	values = append(values, attrs...)
	o.cfg.logger.DebugContext(ctx, "telegram outbound operation", values...)
}

func parseMessageID(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid message id: %w", scorebot.ErrInvalidOutboundRequest, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: invalid message id", scorebot.ErrInvalidOutboundRequest)
	}

	return value, nil
}

type outboundRPC interface {
	SendText(ctx context.Context, peer tg.InputPeerClass, text string, replyTo int) (int, error)
	DeleteMessage(ctx context.Context, peer tg.InputPeerClass, messageID int) error
}

type gotdOutboundRPC struct {
	raw    *tg.Client
	rand   io.Reader
	sender *message.Sender
}

func newGotdOutboundRPC(client *gotdtelegram.Client) gotdOutboundRPC {
	raw := client.API()

	return gotdOutboundRPC{
		raw:    raw,
		rand:   crypto.DefaultRand(),
		sender: message.NewSender(raw),
	}
}

func (r gotdOutboundRPC) SendText(ctx context.Context, peer tg.InputPeerClass, text string, replyTo int) (int, error) {
	request := &tg.MessagesSendMessageRequest{
		Peer:      peer,
		Message:   text,
		NoWebpage: true,
	}
	if replyTo > 0 {
		request.ReplyTo = &tg.InputReplyToMessage{ReplyToMsgID: replyTo}
	}

	randomID, err := crypto.RandInt64(r.rand)
	if err != nil {
		return 0, fmt.Errorf("send text random id: %w", err)
	}
	request.RandomID = randomID

	updates, err := r.raw.MessagesSendMessage(ctx, request)
	if err != nil {
		return 0, fmt.Errorf("send text: %w", err)
	}

	messageID, err := unpack.MessageID(updates, nil)
	if err != nil {
		return 0, fmt.Errorf("extract sent message id: %w", err)
	}

	return messageID, nil
}

func (r gotdOutboundRPC) DeleteMessage(ctx context.Context, peer tg.InputPeerClass, messageID int) error {
	if _, err := r.sender.To(peer).Revoke().Messages(ctx, messageID); err != nil {
		return fmt.Errorf("revoke message: %w", err)
	}

	return nil
}

var _ scorebot.Outbound = (*Outbound)(nil)

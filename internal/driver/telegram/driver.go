package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"scorebot/pkg/scorebot"
)

const defaultPublishTimeout = 2 * time.Second

type driverConfig struct {
	name           string
	publishTimeout time.Duration
	onAsyncError   func(context.Context, error)
	now            func() time.Time
}

// DriverOption mutates Telegram driver configuration.
type DriverOption func(*driverConfig)

// WithName configures the driver identity exposed to the kernel.
func WithName(name string) DriverOption {
	return func(cfg *driverConfig) {
		if name != "" {
			cfg.name = name
		}
	}
}

// WithPublishTimeout bounds how long one message may wait for queue space.
func WithPublishTimeout(timeout time.Duration) DriverOption {
	return func(cfg *driverConfig) {
		if timeout > 0 {
			cfg.publishTimeout = timeout
		}
	}
}

// WithErrorHandler configures the callback for updates that could not be published.
func WithErrorHandler(handler func(context.Context, error)) DriverOption {
	return func(cfg *driverConfig) {
		if handler != nil {
			cfg.onAsyncError = handler
		}
	}
}

// Driver turns Telegram updates into scorebot messages.
type Driver struct {
	cfg    driverConfig
	source UpdateSource
}

// NewDriver creates a Telegram driver reading from source.
func NewDriver(source UpdateSource, options ...DriverOption) (*Driver, error) {
	if source == nil {
		return nil, fmt.Errorf("new telegram driver: nil source")
	}

	cfg := driverConfig{
		name:           DriverType,
		publishTimeout: defaultPublishTimeout,
		onAsyncError:   func(context.Context, error) {},
		now:            time.Now,
	}
	for _, option := range options {
		option(&cfg)
	}

	return &Driver{cfg: cfg, source: source}, nil
}

// Name returns the configured driver instance name.
func (d *Driver) Name() string {
	return d.cfg.name
}

// Start consumes Telegram updates until ctx ends.
func (d *Driver) Start(ctx context.Context, sink scorebot.MessageSink) error {
	if sink == nil {
		return fmt.Errorf("start telegram driver: nil sink")
	}

	handler := func(handlerCtx context.Context, update Update) error {
		d.handleUpdate(handlerCtx, update, sink)
		return nil
	}

	if err := d.source.Consume(ctx, handler); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}

		return fmt.Errorf("start telegram driver: consume updates: %w", err)
	}

	return nil
}

// handleUpdate publishes one update. A message the kernel refuses is reported
// and dropped so the session keeps running.
func (d *Driver) handleUpdate(ctx context.Context, update Update, sink scorebot.MessageSink) {
	message := d.toMessage(update)

	publishCtx, cancel := context.WithTimeout(ctx, d.cfg.publishTimeout)
	defer cancel()

	if err := sink.Publish(publishCtx, message); err != nil {
		if ctx.Err() != nil {
			return
		}
		d.cfg.onAsyncError(ctx, fmt.Errorf("publish telegram message %d in %s: %w", update.MessageID, update.ChatID, err))
	}
}

func (d *Driver) toMessage(update Update) scorebot.Message {
	receivedAt := update.OccurredAt
	if receivedAt.IsZero() {
		receivedAt = d.cfg.now().UTC()
	}

	return scorebot.Message{
		ID:         strconv.Itoa(update.MessageID),
		ChannelID:  update.ChatID,
		Text:       strings.TrimSpace(update.Text),
		AuthorID:   update.AuthorID,
		AuthorName: update.AuthorName,
		Source:     d.cfg.name,
		ReceivedAt: receivedAt,
	}
}

// Shutdown releases resources not controlled by the Start context.
func (d *Driver) Shutdown(_ context.Context) error {
	return nil
}

var _ scorebot.Driver = (*Driver)(nil)

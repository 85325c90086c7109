// Package console implements a line-oriented driver over a reader and a
// writer, used for local runs and tests.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"scorebot/pkg/scorebot"

	"go.uber.org/atomic"
	"gopkg.in/yaml.v3"
)

// DriverType is the configured driver type token for the console runtime.
const DriverType = "console"

const (
	defaultChannelID = "console"
	defaultAuthor    = "operator"
)

// Config is the console driver section.
type Config struct {
	// ChannelID is the channel every input line is attributed to.
	ChannelID string `yaml:"channel_id"`
	// Author is the display name attached to input lines.
	Author string `yaml:"author"`
}

// ParseConfig decodes a driver config node. A missing node yields defaults.
func ParseConfig(node *yaml.Node) (Config, error) {
	cfg := Config{}
	if node != nil && node.Kind != 0 {
		if err := node.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode console config: %w", err)
		}
	}
	cfg.ChannelID = strings.TrimSpace(cfg.ChannelID)
	if cfg.ChannelID == "" {
		cfg.ChannelID = defaultChannelID
	}
	cfg.Author = strings.TrimSpace(cfg.Author)
	if cfg.Author == "" {
		cfg.Author = defaultAuthor
	}

	return cfg, nil
}

// Driver publishes one message per non-blank input line.
type Driver struct {
	name   string
	cfg    Config
	input  io.Reader
	nextID *atomic.Int64
	now    func() time.Time
}

// NewDriver creates a console driver reading input.
func NewDriver(name string, cfg Config, input io.Reader) (*Driver, error) {
	if name == "" {
		return nil, fmt.Errorf("new console driver: empty name")
	}
	if input == nil {
		return nil, fmt.Errorf("new console driver: nil input")
	}

	return &Driver{
		name:   name,
		cfg:    cfg,
		input:  input,
		nextID: atomic.NewInt64(0),
		now:    time.Now,
	}, nil
}

// Name returns the configured driver instance name.
func (d *Driver) Name() string {
	return d.name
}

// Start reads lines until input ends or ctx is cancelled.
func (d *Driver) Start(ctx context.Context, sink scorebot.MessageSink) error {
	if sink == nil {
		return fmt.Errorf("start console driver: nil sink")
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(d.input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("start console driver: read input: %w", err)
					}
				default:
				}
				return nil
			}
			if err := d.publish(ctx, sink, line); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		}
	}
}

func (d *Driver) publish(ctx context.Context, sink scorebot.MessageSink, line string) error {
	text := strings.TrimSpace(line)
	if text == "" {
		return nil
	}

	message := scorebot.Message{
		ID:         strconv.FormatInt(d.nextID.Inc(), 10),
		ChannelID:  d.cfg.ChannelID,
		Text:       text,
		AuthorID:   d.cfg.Author,
		AuthorName: d.cfg.Author,
		Source:     d.name,
		ReceivedAt: d.now().UTC(),
	}
	if err := sink.Publish(ctx, message); err != nil {
		return fmt.Errorf("publish console message %s: %w", message.ID, err)
	}

	return nil
}

// Shutdown is a no-op; input ownership stays with the caller.
func (d *Driver) Shutdown(_ context.Context) error {
	return nil
}

// Outbound prints replies to a writer.
type Outbound struct {
	mu     sync.Mutex
	output io.Writer
	nextID *atomic.Int64
}

// NewOutbound creates a console outbound writing to output.
func NewOutbound(output io.Writer) (*Outbound, error) {
	if output == nil {
		return nil, fmt.Errorf("new console outbound: nil output")
	}

	return &Outbound{output: output, nextID: atomic.NewInt64(0)}, nil
}

// SendMessage writes the text followed by a blank separator line.
func (o *Outbound) SendMessage(
	_ context.Context,
	request scorebot.SendMessageRequest,
) (*scorebot.OutboundMessage, error) {
	if err := request.Validate(); err != nil {
		return nil, fmt.Errorf("send console message: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, err := fmt.Fprintf(o.output, "%s\n\n", request.Text); err != nil {
		return nil, fmt.Errorf("send console message: %w", err)
	}

	return &scorebot.OutboundMessage{
		ID:     "out-" + strconv.FormatInt(o.nextID.Inc(), 10),
		Target: request.Target,
	}, nil
}

// DeleteMessage accepts the request; printed lines cannot be retracted.
func (o *Outbound) DeleteMessage(_ context.Context, request scorebot.DeleteMessageRequest) error {
	if err := request.Validate(); err != nil {
		return fmt.Errorf("delete console message: %w", err)
	}

	return nil
}

var (
	_ scorebot.Driver   = (*Driver)(nil)
	_ scorebot.Outbound = (*Outbound)(nil)
)

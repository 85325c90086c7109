package pingpong

import (
	"context"
	"fmt"
	"log/slog"

	"scorebot/internal/i18n"
	"scorebot/pkg/scorebot"
)

const pingCommandName = "ping"

// Option mutates ping module configuration.
type Option func(*Module)

// WithLogger sets the logger used when the command message cannot be deleted.
func WithLogger(logger *slog.Logger) Option {
	return func(module *Module) {
		if logger != nil {
			module.logger = logger
		}
	}
}

// Module answers "!ping" and removes the command message.
type Module struct {
	logger    *slog.Logger
	triggers  scorebot.Triggers
	outbound  scorebot.Outbound
	localizer scorebot.Localizer
}

// New creates a ping module with default configuration.
func New(options ...Option) *Module {
	module := &Module{
		logger:   slog.Default(),
		triggers: scorebot.NewTriggers([]string{"!ping"}),
	}
	for _, option := range options {
		option(module)
	}

	return module
}

// Name returns the stable module identifier.
func (m *Module) Name() string {
	return "pingpong"
}

// Commands returns the ping command.
func (m *Module) Commands() []scorebot.Command {
	return []scorebot.Command{pingCommand{module: m}}
}

// OnRegister resolves outbound dependencies required by this module.
func (m *Module) OnRegister(_ context.Context, runtime scorebot.ModuleRuntime) error {
	outbound, err := scorebot.ResolveAs[scorebot.Outbound](runtime.Services(), scorebot.ServiceOutbound)
	if err != nil {
		return fmt.Errorf("pingpong resolve outbound: %w", err)
	}
	localizer, err := scorebot.ResolveAs[scorebot.Localizer](runtime.Services(), scorebot.ServiceLocalizer)
	if err != nil {
		return fmt.Errorf("pingpong resolve localizer: %w", err)
	}

	m.outbound = outbound
	m.localizer = localizer

	return nil
}

// OnStart starts the module lifecycle.
func (m *Module) OnStart(_ context.Context) error {
	return nil
}

// OnShutdown stops the module lifecycle.
func (m *Module) OnShutdown(_ context.Context) error {
	return nil
}

type pingCommand struct {
	module *Module
}

func (c pingCommand) Name() string { return pingCommandName }

func (c pingCommand) Matches(input string) bool { return c.module.triggers.Matches(input) }

// NeedsHelp is always false: ping takes no arguments and ignores any given.
func (c pingCommand) NeedsHelp(string) bool { return false }

func (c pingCommand) Help() string {
	return "> `!ping`"
}

func (c pingCommand) Execute(ctx context.Context, request scorebot.Request) error {
	m := c.module
	if m.outbound == nil || m.localizer == nil {
		return fmt.Errorf("pingpong execute: module not registered")
	}

	_, err := m.outbound.SendMessage(ctx, scorebot.ReplyTo(request.Message, m.localizer.Text(i18n.KeyPingReply)))
	if err != nil {
		return fmt.Errorf("pingpong send reply: %w", err)
	}
	if err := m.outbound.DeleteMessage(ctx, scorebot.DeleteRequestFor(request.Message)); err != nil {
		m.logger.WarnContext(ctx, "pingpong failed to delete command message",
			"channel_id", request.Message.ChannelID,
			"message_id", request.Message.ID,
			"error", err,
		)
	}

	return nil
}

var (
	_ scorebot.Module  = (*Module)(nil)
	_ scorebot.Command = pingCommand{}
)

// Package tracker exposes the per-channel win/loss tracker as a chat command.
package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"scorebot/pkg/scorebot"
	scores "scorebot/pkg/tracker"
)

// ServiceRepository is the service registry key for the tracker repository.
const ServiceRepository = "scorebot.tracker_repository"

// Option mutates tracker module configuration.
type Option func(*Module)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(module *Module) {
		if logger != nil {
			module.logger = logger
		}
	}
}

// WithHelpAliases adds localized spellings of the help argument.
func WithHelpAliases(aliases ...string) Option {
	return func(module *Module) {
		module.helpAliases = append(module.helpAliases, aliases...)
	}
}

// Module registers the tracker command.
type Module struct {
	logger      *slog.Logger
	helpAliases []string
	command     *Command
}

// New creates a tracker module.
func New(options ...Option) *Module {
	module := &Module{logger: slog.Default()}
	for _, option := range options {
		option(module)
	}

	return module
}

// Name returns the stable module identifier.
func (m *Module) Name() string {
	return "tracker"
}

// Commands returns the tracker command once OnRegister has resolved its
// dependencies.
func (m *Module) Commands() []scorebot.Command {
	if m.command == nil {
		return nil
	}

	return []scorebot.Command{m.command}
}

// OnRegister resolves the repository, outbound, and localizer services.
func (m *Module) OnRegister(_ context.Context, runtime scorebot.ModuleRuntime) error {
	repository, err := scorebot.ResolveAs[*scores.Repository](runtime.Services(), ServiceRepository)
	if err != nil {
		return fmt.Errorf("tracker resolve repository: %w", err)
	}
	outbound, err := scorebot.ResolveAs[scorebot.Outbound](runtime.Services(), scorebot.ServiceOutbound)
	if err != nil {
		return fmt.Errorf("tracker resolve outbound: %w", err)
	}
	localizer, err := scorebot.ResolveAs[scorebot.Localizer](runtime.Services(), scorebot.ServiceLocalizer)
	if err != nil {
		return fmt.Errorf("tracker resolve localizer: %w", err)
	}

	m.command = NewCommand(repository, outbound, localizer, m.logger, m.helpAliases...)

	return nil
}

// OnStart has no runtime work to begin.
func (m *Module) OnStart(context.Context) error {
	return nil
}

// OnShutdown has nothing to release.
func (m *Module) OnShutdown(context.Context) error {
	return nil
}

var _ scorebot.Module = (*Module)(nil)

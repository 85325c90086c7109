package kernel

import (
	"context"
	"fmt"

	"scorebot/pkg/scorebot"
)

// registryCommandCatalog exposes registry contents through ServiceRegistry.
type registryCommandCatalog struct {
	registry *CommandRegistry
}

// ListCommands returns registered commands in matching order.
func (c *registryCommandCatalog) ListCommands(ctx context.Context) ([]scorebot.RegisteredCommand, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	if c == nil || c.registry == nil {
		return nil, fmt.Errorf("list commands: nil catalog")
	}

	registrations := c.registry.snapshot()
	commands := make([]scorebot.RegisteredCommand, 0, len(registrations))
	for _, registration := range registrations {
		commands = append(commands, scorebot.RegisteredCommand{
			ModuleName: registration.moduleName,
			Name:       registration.command.Name(),
			Help:       registration.command.Help(),
		})
	}

	return commands, nil
}

var _ scorebot.CommandCatalog = (*registryCommandCatalog)(nil)

package scorebot

import (
	"context"
	"fmt"
)

// ServiceCommandCatalog is the service registry key for command discovery.
const ServiceCommandCatalog = "scorebot.command_catalog"

// ServiceLocalizer is the service registry key for user-facing text.
const ServiceLocalizer = "scorebot.localizer"

// ServiceRegistry provides runtime dependency injection to modules.
type ServiceRegistry interface {
	// Register binds a singleton service value to a stable name.
	Register(name string, service any) error
	// Resolve returns a registered service by name.
	Resolve(name string) (any, error)
}

// ResolveAs resolves a service and casts it to the requested type.
func ResolveAs[T any](registry ServiceRegistry, name string) (T, error) {
	var zero T

	service, err := registry.Resolve(name)
	if err != nil {
		return zero, fmt.Errorf("resolve service %s: %w", name, err)
	}

	typed, ok := service.(T)
	if !ok {
		return zero, fmt.Errorf("resolve service %s: type assertion failed", name)
	}

	return typed, nil
}

// RegisteredCommand describes one command known to the kernel.
type RegisteredCommand struct {
	ModuleName string
	Name       string
	Help       string
}

// CommandCatalog lists registered commands in matching order.
type CommandCatalog interface {
	ListCommands(ctx context.Context) ([]RegisteredCommand, error)
}

// Localizer renders user-facing text by message key.
type Localizer interface {
	Text(key string, args ...any) string
}

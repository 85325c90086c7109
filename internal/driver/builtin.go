package driver

import (
	"context"
	"fmt"
	"os"

	"scorebot/internal/driver/console"
	"scorebot/internal/driver/telegram"
)

// NewBuiltinRegistry constructs the registry with every built-in driver type.
func NewBuiltinRegistry() (*Registry, error) {
	return NewRegistry([]Descriptor{
		{
			Type: telegram.DriverType,
			Builder: func(_ context.Context, definition Definition, env Environment) (Runtime, error) {
				runtime, err := telegram.BuildRuntime(definition.Name, env.Logger, &definition.Config, env.Secret)
				if err != nil {
					return Runtime{}, fmt.Errorf("build telegram runtime from config: %w", err)
				}

				return Runtime{
					Name:     definition.Name,
					Driver:   runtime.Driver,
					Outbound: runtime.Outbound,
				}, nil
			},
		},
		{
			Type: console.DriverType,
			Builder: func(_ context.Context, definition Definition, env Environment) (Runtime, error) {
				cfg, err := console.ParseConfig(&definition.Config)
				if err != nil {
					return Runtime{}, err
				}

				input := env.Stdin
				if input == nil {
					input = os.Stdin
				}
				output := env.Stdout
				if output == nil {
					output = os.Stdout
				}

				runtimeDriver, err := console.NewDriver(definition.Name, cfg, input)
				if err != nil {
					return Runtime{}, err
				}
				outbound, err := console.NewOutbound(output)
				if err != nil {
					return Runtime{}, err
				}

				return Runtime{
					Name:     definition.Name,
					Driver:   runtimeDriver,
					Outbound: outbound,
				}, nil
			},
		},
	})
}

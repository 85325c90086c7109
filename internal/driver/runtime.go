package driver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"scorebot/pkg/scorebot"

	"gopkg.in/yaml.v3"
)

// Definition describes one configured driver entry.
type Definition struct {
	// Name is the configured driver instance identifier and outbound routing key.
	Name string
	// Type identifies which builder should construct this runtime.
	Type string
	// Enabled controls whether this definition is active.
	Enabled bool
	// Config stores the driver-type-specific YAML section.
	Config yaml.Node
}

// Environment carries process-level facilities builders may need.
type Environment struct {
	Logger *slog.Logger
	// Secret resolves a key from the secrets config section. It may be nil.
	Secret func(key string) string
	Stdin  io.Reader
	Stdout io.Writer
}

// Runtime contains one fully built driver instance.
type Runtime struct {
	// Name is the configured instance name.
	Name string
	// Driver is the inbound side registered with the kernel.
	Driver scorebot.Driver
	// Outbound sends replies back to the same platform.
	Outbound scorebot.Outbound
}

// BuilderFunc builds one runtime from one configured driver definition.
type BuilderFunc func(ctx context.Context, definition Definition, env Environment) (Runtime, error)

// Descriptor binds one driver type token to its runtime builder.
type Descriptor struct {
	// Type is the driver type token from configuration (for example "telegram").
	Type    string
	Builder BuilderFunc
}

// Registry maps driver types to runtime builders.
type Registry struct {
	builders map[string]BuilderFunc
	types    []string
}

// NewRegistry creates one immutable driver registry from descriptors.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	builders := make(map[string]BuilderFunc, len(descriptors))
	types := make([]string, 0, len(descriptors))
	for _, descriptor := range descriptors {
		if descriptor.Type == "" {
			return nil, fmt.Errorf("new registry: empty descriptor type")
		}
		if descriptor.Builder == nil {
			return nil, fmt.Errorf("new registry type %s: nil builder", descriptor.Type)
		}
		if _, exists := builders[descriptor.Type]; exists {
			return nil, fmt.Errorf("new registry type %s: duplicate", descriptor.Type)
		}

		builders[descriptor.Type] = descriptor.Builder
		types = append(types, descriptor.Type)
	}
	sort.Strings(types)

	return &Registry{builders: builders, types: types}, nil
}

// Types returns all registered driver types in sorted order.
func (r *Registry) Types() []string {
	if r == nil {
		return nil
	}

	types := make([]string, len(r.types))
	copy(types, r.types)

	return types
}

// BuildEnabled builds all enabled driver definitions.
func (r *Registry) BuildEnabled(ctx context.Context, definitions []Definition, env Environment) ([]Runtime, error) {
	if r == nil {
		return nil, fmt.Errorf("build drivers: nil registry")
	}
	if env.Logger == nil {
		env.Logger = slog.Default()
	}

	runtimes := make([]Runtime, 0, len(definitions))
	seenNames := make(map[string]struct{}, len(definitions))
	for _, definition := range definitions {
		if !definition.Enabled {
			continue
		}
		if definition.Name == "" {
			return nil, fmt.Errorf("build driver: empty name")
		}
		if _, exists := seenNames[definition.Name]; exists {
			return nil, fmt.Errorf("build driver %s: duplicate name", definition.Name)
		}
		seenNames[definition.Name] = struct{}{}

		builder, exists := r.builders[definition.Type]
		if !exists {
			return nil, fmt.Errorf("build driver %s type %s: unsupported type", definition.Name, definition.Type)
		}

		runtime, err := builder(ctx, definition, env)
		if err != nil {
			return nil, fmt.Errorf("build driver %s type %s: %w", definition.Name, definition.Type, err)
		}
		if runtime.Driver == nil {
			return nil, fmt.Errorf("build driver %s type %s: nil driver", definition.Name, definition.Type)
		}
		if runtime.Name == "" {
			runtime.Name = definition.Name
		}

		runtimes = append(runtimes, runtime)
	}

	return runtimes, nil
}

// Router sends outbound requests to the driver named by their target.
type Router struct {
	byName map[string]scorebot.Outbound
}

// NewRouter indexes runtime outbounds by driver name. Runtimes without an
// outbound are receive-only.
func NewRouter(runtimes []Runtime) (*Router, error) {
	byName := make(map[string]scorebot.Outbound, len(runtimes))
	for _, runtime := range runtimes {
		if runtime.Outbound == nil {
			continue
		}
		if runtime.Name == "" {
			return nil, fmt.Errorf("new outbound router: missing driver name")
		}
		if _, exists := byName[runtime.Name]; exists {
			return nil, fmt.Errorf("new outbound router: duplicate driver %s", runtime.Name)
		}
		byName[runtime.Name] = runtime.Outbound
	}

	return &Router{byName: byName}, nil
}

// SendMessage routes send-message requests to one driver.
func (r *Router) SendMessage(
	ctx context.Context,
	request scorebot.SendMessageRequest,
) (*scorebot.OutboundMessage, error) {
	outbound, err := r.resolve(request.Target)
	if err != nil {
		return nil, fmt.Errorf("route send message: %w", err)
	}

	response, err := outbound.SendMessage(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("route send message via %s: %w", request.Target.Driver, err)
	}

	return response, nil
}

// DeleteMessage routes delete-message requests to one driver.
func (r *Router) DeleteMessage(ctx context.Context, request scorebot.DeleteMessageRequest) error {
	outbound, err := r.resolve(request.Target)
	if err != nil {
		return fmt.Errorf("route delete message: %w", err)
	}

	if err := outbound.DeleteMessage(ctx, request); err != nil {
		return fmt.Errorf("route delete message via %s: %w", request.Target.Driver, err)
	}

	return nil
}

// Drivers returns the routable driver names in sorted order.
func (r *Router) Drivers() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (r *Router) resolve(target scorebot.Target) (scorebot.Outbound, error) {
	if r == nil {
		return nil, fmt.Errorf("nil router")
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	outbound, exists := r.byName[target.Driver]
	if !exists {
		return nil, fmt.Errorf("%w: driver %s", scorebot.ErrUnknownTarget, target.Driver)
	}

	return outbound, nil
}

var _ scorebot.Outbound = (*Router)(nil)

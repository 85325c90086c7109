package scorebot

import "context"

// MessageSink accepts inbound messages from drivers.
type MessageSink interface {
	// Publish queues message for dispatch. It blocks while the queue is full.
	Publish(ctx context.Context, message Message) error
}

// ModuleRuntime provides kernel facilities to modules during registration.
type ModuleRuntime interface {
	// Services exposes the service registry for dependency lookup.
	Services() ServiceRegistry
}

// Module is a lifecycle-aware bundle of commands.
//
// Commands must be concurrency-safe when the kernel runs several workers.
type Module interface {
	// Name returns a stable module identifier.
	Name() string
	// Commands returns the module commands in matching priority order.
	Commands() []Command
	// OnRegister is called once when the module is registered.
	OnRegister(ctx context.Context, runtime ModuleRuntime) error
	// OnStart is called when the kernel begins runtime execution.
	OnStart(ctx context.Context) error
	// OnShutdown is called during orderly shutdown.
	OnShutdown(ctx context.Context) error
}

// Driver adapts a chat platform into inbound messages.
type Driver interface {
	// Name returns the configured driver instance name.
	Name() string
	// Start consumes platform updates and publishes messages to sink.
	// It returns only after context cancellation or a fatal error.
	Start(ctx context.Context, sink MessageSink) error
	// Shutdown releases resources not tied to the Start context.
	Shutdown(ctx context.Context) error
}

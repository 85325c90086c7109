package kernel

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultModuleHookTimeout = 5 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	defaultQueueSize         = 256
	defaultWorkers           = 1
	defaultHandlerTimeout    = 10 * time.Second
	defaultFailureReply      = "Something went wrong while running this command."

	tracerName = "scorebot/kernel"
)

// config stores resolved kernel runtime settings after option application.
type config struct {
	moduleHookTimeout time.Duration
	shutdownTimeout   time.Duration
	queueSize         int
	workers           int
	handlerTimeout    time.Duration
	failureReply      string
	logger            *slog.Logger
	metrics           *Metrics
	tracer            trace.Tracer
	onAsyncError      func(context.Context, string, error)
}

// Option mutates kernel construction configuration.
type Option func(*config)

// defaultConfig returns production-safe defaults for kernel runtime controls.
func defaultConfig() config {
	logger := slog.Default()

	return config{
		moduleHookTimeout: defaultModuleHookTimeout,
		shutdownTimeout:   defaultShutdownTimeout,
		queueSize:         defaultQueueSize,
		workers:           defaultWorkers,
		handlerTimeout:    defaultHandlerTimeout,
		failureReply:      defaultFailureReply,
		logger:            logger,
		tracer:            otel.Tracer(tracerName),
		onAsyncError: func(ctx context.Context, scope string, err error) {
			logger.ErrorContext(ctx, "scorebot async error", "scope", scope, "error", err)
		},
	}
}

// WithModuleHookTimeout configures OnRegister/OnStart/OnShutdown timeout boundaries.
func WithModuleHookTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		if timeout > 0 {
			cfg.moduleHookTimeout = timeout
		}
	}
}

// WithShutdownTimeout configures overall kernel shutdown timeout.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		if timeout > 0 {
			cfg.shutdownTimeout = timeout
		}
	}
}

// WithQueueSize configures how many inbound messages may wait for a worker.
func WithQueueSize(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.queueSize = size
		}
	}
}

// WithWorkers configures how many messages are dispatched concurrently.
// The default of one handles each message to completion before the next.
func WithWorkers(workers int) Option {
	return func(cfg *config) {
		if workers > 0 {
			cfg.workers = workers
		}
	}
}

// WithHandlerTimeout configures the per-message dispatch timeout.
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		if timeout > 0 {
			cfg.handlerTimeout = timeout
		}
	}
}

// WithFailureReply configures the text sent when a command fails unexpectedly.
func WithFailureReply(text string) Option {
	return func(cfg *config) {
		if text != "" {
			cfg.failureReply = text
		}
	}
}

// WithMetrics configures Prometheus collectors for dispatch outcomes.
func WithMetrics(metrics *Metrics) Option {
	return func(cfg *config) {
		cfg.metrics = metrics
	}
}

// WithTracer overrides the tracer used for dispatch spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(cfg *config) {
		if tracer != nil {
			cfg.tracer = tracer
		}
	}
}

// WithLogger configures logger used by kernel and default async error sink.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			return
		}

		cfg.logger = logger
		cfg.onAsyncError = func(ctx context.Context, scope string, err error) {
			logger.ErrorContext(ctx, "scorebot async error", "scope", scope, "error", err)
		}
	}
}

// WithAsyncErrorHandler configures asynchronous worker error reporting.
func WithAsyncErrorHandler(handler func(context.Context, string, error)) Option {
	return func(cfg *config) {
		if handler != nil {
			cfg.onAsyncError = handler
		}
	}
}

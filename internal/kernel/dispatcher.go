package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"scorebot/pkg/scorebot"
)

// Dispatcher routes one inbound message to at most one command.
//
// For each message it finds the first matching command. A command that needs
// help answers with its help text; otherwise it executes. Unmatched messages
// are only logged.
type Dispatcher struct {
	registry     *CommandRegistry
	outbound     scorebot.Outbound
	logger       *slog.Logger
	metrics      *Metrics
	tracer       trace.Tracer
	failureReply string
}

// NewDispatcher creates a dispatcher. Only the logger, metrics, tracer, and
// failure reply options apply.
func NewDispatcher(registry *CommandRegistry, outbound scorebot.Outbound, options ...Option) *Dispatcher {
	cfg := defaultConfig()
	for _, option := range options {
		option(&cfg)
	}

	return newDispatcher(registry, outbound, cfg)
}

func newDispatcher(registry *CommandRegistry, outbound scorebot.Outbound, cfg config) *Dispatcher {
	tracer := cfg.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Dispatcher{
		registry:     registry,
		outbound:     outbound,
		logger:       cfg.logger,
		metrics:      cfg.metrics,
		tracer:       tracer,
		failureReply: cfg.failureReply,
	}
}

// Dispatch handles message and reports what happened. The returned error is
// non-nil only when the reply itself could not be delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, message scorebot.Message) (Outcome, error) {
	started := time.Now()
	dispatchID := uuid.NewString()

	ctx, span := d.tracer.Start(ctx, "kernel.Dispatch", trace.WithAttributes(
		attribute.String("scorebot.dispatch_id", dispatchID),
		attribute.String("scorebot.channel_id", message.ChannelID),
		attribute.String("scorebot.source", message.Source),
	))
	defer span.End()

	logger := d.logger.With(
		"dispatch_id", dispatchID,
		"channel_id", message.ChannelID,
		"source", message.Source,
		"message_id", message.ID,
	)

	command, matched := d.registry.FindMatch(message.Text)
	if !matched {
		logger.DebugContext(ctx, "no command matched message")
		d.metrics.observe("", OutcomeUnmatched, time.Since(started))
		span.SetAttributes(attribute.String("scorebot.outcome", string(OutcomeUnmatched)))
		return OutcomeUnmatched, nil
	}

	name := command.Name()
	span.SetAttributes(attribute.String("scorebot.command", name))
	logger = logger.With("command", name)

	outcome, replyErr := d.run(ctx, logger, command, message)
	d.metrics.observe(name, outcome, time.Since(started))
	span.SetAttributes(attribute.String("scorebot.outcome", string(outcome)))
	if replyErr != nil {
		span.RecordError(replyErr)
		span.SetStatus(codes.Error, "reply failed")
		return outcome, fmt.Errorf("dispatch %s: %w", name, replyErr)
	}

	return outcome, nil
}

func (d *Dispatcher) run(
	ctx context.Context,
	logger *slog.Logger,
	command scorebot.Command,
	message scorebot.Message,
) (Outcome, error) {
	if command.NeedsHelp(message.Text) {
		logger.DebugContext(ctx, "command needs help")
		return OutcomeHelp, d.reply(ctx, message, command.Help())
	}

	request := scorebot.Request{Message: message, Args: argsAfterTrigger(message.Text)}
	err := runSafely("command "+command.Name(), func() error {
		return command.Execute(ctx, request)
	})
	if err == nil {
		logger.InfoContext(ctx, "command executed")
		return OutcomeExecuted, nil
	}

	var userErr *scorebot.UserError
	if errors.As(err, &userErr) && userErr.Reply != "" {
		logger.InfoContext(ctx, "command rejected input", "error", err)
		return OutcomeRejected, d.reply(ctx, message, userErr.Reply)
	}

	logger.ErrorContext(ctx, "command failed", "error", err, "panicked", errors.Is(err, errPanicked))
	trace.SpanFromContext(ctx).RecordError(err)

	return OutcomeFailed, d.reply(ctx, message, d.failureReply)
}

func (d *Dispatcher) reply(ctx context.Context, message scorebot.Message, text string) error {
	if d.outbound == nil {
		return fmt.Errorf("reply: no outbound configured")
	}
	_, err := d.outbound.SendMessage(ctx, scorebot.SendMessageRequest{
		Target: scorebot.TargetFromMessage(message),
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("reply: %w", err)
	}

	return nil
}

func argsAfterTrigger(input string) []string {
	fields := strings.Fields(input)
	if len(fields) <= 1 {
		return nil
	}

	return fields[1:]
}

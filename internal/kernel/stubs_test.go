package kernel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"scorebot/pkg/scorebot"
)

type stubCommand struct {
	name     string
	triggers scorebot.Triggers
	help     string
	execErr  error
	panicMsg string
	executed atomic.Int64
	lastArgs []string
	mu       sync.Mutex
}

func newStubCommand(name string, tokens ...string) *stubCommand {
	return &stubCommand{
		name:     name,
		triggers: scorebot.NewTriggers(tokens),
		help:     name + " usage",
	}
}

func (c *stubCommand) Name() string                { return c.name }
func (c *stubCommand) Matches(input string) bool   { return c.triggers.Matches(input) }
func (c *stubCommand) NeedsHelp(input string) bool { return c.triggers.NeedsHelp(input) }
func (c *stubCommand) Help() string                { return c.help }

func (c *stubCommand) Execute(_ context.Context, request scorebot.Request) error {
	c.executed.Add(1)
	c.mu.Lock()
	c.lastArgs = request.Args
	c.mu.Unlock()
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}

	return c.execErr
}

type captureOutbound struct {
	mu      sync.Mutex
	sent    []scorebot.SendMessageRequest
	deleted []scorebot.DeleteMessageRequest
	sendErr error
}

func (o *captureOutbound) SendMessage(
	_ context.Context,
	request scorebot.SendMessageRequest,
) (*scorebot.OutboundMessage, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, request)
	if o.sendErr != nil {
		return nil, o.sendErr
	}

	return &scorebot.OutboundMessage{ID: "out-1", Target: request.Target}, nil
}

func (o *captureOutbound) DeleteMessage(_ context.Context, request scorebot.DeleteMessageRequest) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deleted = append(o.deleted, request)

	return nil
}

func (o *captureOutbound) texts() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	texts := make([]string, 0, len(o.sent))
	for _, request := range o.sent {
		texts = append(texts, request.Text)
	}

	return texts
}

type stubModule struct {
	name       string
	commands   []scorebot.Command
	registerFn func(scorebot.ModuleRuntime) error
	registered atomic.Int64
	started    atomic.Int64
	shutdown   atomic.Int64
}

func (m *stubModule) Name() string                 { return m.name }
func (m *stubModule) Commands() []scorebot.Command { return m.commands }

func (m *stubModule) OnRegister(_ context.Context, runtime scorebot.ModuleRuntime) error {
	m.registered.Add(1)
	if m.registerFn != nil {
		return m.registerFn(runtime)
	}

	return nil
}

func (m *stubModule) OnStart(context.Context) error {
	m.started.Add(1)
	return nil
}

func (m *stubModule) OnShutdown(context.Context) error {
	m.shutdown.Add(1)
	return nil
}

// stubDriver publishes its messages and then either waits for cancellation
// or returns, depending on exitAfterPublish.
type stubDriver struct {
	name             string
	messages         []scorebot.Message
	exitAfterPublish bool
	startErr         error
	started          atomic.Int64
	stopped          atomic.Int64
}

func (d *stubDriver) Name() string { return d.name }

func (d *stubDriver) Start(ctx context.Context, sink scorebot.MessageSink) error {
	d.started.Add(1)
	for _, message := range d.messages {
		if err := sink.Publish(ctx, message); err != nil {
			return err
		}
	}
	if d.startErr != nil {
		return d.startErr
	}
	if d.exitAfterPublish {
		return nil
	}
	<-ctx.Done()

	return ctx.Err()
}

func (d *stubDriver) Shutdown(context.Context) error {
	d.stopped.Add(1)
	return nil
}

var errStub = errors.New("stub failure")

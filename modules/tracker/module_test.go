package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"scorebot/internal/cache/filesystem"
	"scorebot/internal/i18n"
	"scorebot/pkg/scorebot"
	scores "scorebot/pkg/tracker"
)

type captureOutbound struct {
	mu        sync.Mutex
	sent      []scorebot.SendMessageRequest
	deleted   []scorebot.DeleteMessageRequest
	deleteErr error
}

func (o *captureOutbound) SendMessage(
	_ context.Context,
	request scorebot.SendMessageRequest,
) (*scorebot.OutboundMessage, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, request)

	return &scorebot.OutboundMessage{ID: fmt.Sprintf("out-%d", len(o.sent)), Target: request.Target}, nil
}

func (o *captureOutbound) DeleteMessage(_ context.Context, request scorebot.DeleteMessageRequest) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deleted = append(o.deleted, request)

	return o.deleteErr
}

type mapServices map[string]any

func (s mapServices) Register(name string, service any) error {
	s[name] = service
	return nil
}

func (s mapServices) Resolve(name string) (any, error) {
	service, ok := s[name]
	if !ok {
		return nil, scorebot.ErrServiceNotFound
	}

	return service, nil
}

type testRuntime struct {
	services mapServices
}

func (r testRuntime) Services() scorebot.ServiceRegistry {
	return r.services
}

type fixture struct {
	command    *Command
	outbound   *captureOutbound
	repository *scores.Repository
	store      *filesystem.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	store, err := filesystem.New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	bundle, err := i18n.LoadEmbedded()
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repository := scores.NewRepository(store, scores.WithLogger(logger))
	outbound := &captureOutbound{}

	module := New(WithLogger(logger), WithHelpAliases("aide"))
	err = module.OnRegister(context.Background(), testRuntime{services: mapServices{
		ServiceRepository:         repository,
		scorebot.ServiceOutbound:  outbound,
		scorebot.ServiceLocalizer: bundle.Localizer("en"),
	}})
	if err != nil {
		t.Fatalf("register module: %v", err)
	}
	commands := module.Commands()
	if len(commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(commands))
	}

	return fixture{
		command:    commands[0].(*Command),
		outbound:   outbound,
		repository: repository,
		store:      store,
	}
}

func (f fixture) storedRecord(t *testing.T) string {
	t.Helper()

	record, err := f.store.Get(context.Background(), scores.Key("-100123"), "")
	if err != nil {
		t.Fatalf("read stored record: %v", err)
	}

	return record
}

func (f fixture) run(t *testing.T, text string) error {
	t.Helper()

	message := scorebot.Message{ID: "m-" + text, ChannelID: "-100123", Text: text, Source: "console"}
	if !f.command.Matches(text) {
		t.Fatalf("%q does not match", text)
	}
	if f.command.NeedsHelp(text) {
		t.Fatalf("%q needs help", text)
	}

	return f.command.Execute(context.Background(), scorebot.Request{
		Message: message,
		Args:    strings.Fields(text)[1:],
	})
}

func (f fixture) lastReply() string {
	f.outbound.mu.Lock()
	defer f.outbound.mu.Unlock()
	if len(f.outbound.sent) == 0 {
		return ""
	}

	return f.outbound.sent[len(f.outbound.sent)-1].Text
}

func TestCommandMatchesEveryTrigger(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, trigger := range Triggers {
		if !f.command.Matches(trigger + " 1 2") {
			t.Fatalf("%q does not match", trigger)
		}
		if !f.command.NeedsHelp(trigger) {
			t.Fatalf("%q without arguments should need help", trigger)
		}
		if !f.command.NeedsHelp(trigger + " aide") {
			t.Fatalf("%q aide should need help", trigger)
		}
	}
	if !f.command.Matches("!RÉSULTAT 1 2") {
		t.Fatal("upper-case accented trigger does not match")
	}
	if f.command.Matches("!ping") || f.command.Matches("result 1 2") {
		t.Fatal("unexpected match")
	}
}

func TestRegisterRequiresExistingTracker(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.run(t, "!result 3 1")

	var userErr *scorebot.UserError
	if !errors.As(err, &userErr) {
		t.Fatalf("error = %v, want *scorebot.UserError", err)
	}
	if !errors.Is(err, scores.ErrChannelNotRegistered) {
		t.Fatalf("error = %v, want ErrChannelNotRegistered", err)
	}
	if !strings.Contains(userErr.Reply, "no tracker") {
		t.Fatalf("reply = %q, want not-registered denial", userErr.Reply)
	}
	exists, err := f.repository.Exists(context.Background(), "-100123")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("denied registration persisted a tracker")
	}
	if len(f.outbound.sent) != 0 || len(f.outbound.deleted) != 0 {
		t.Fatalf("outbound = %d sent, %d deleted, want none", len(f.outbound.sent), len(f.outbound.deleted))
	}
}

func TestFixThenRegisterAccumulates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if err := f.run(t, "!result fix 2 1"); err != nil {
		t.Fatalf("fix: %v", err)
	}
	if got, want := f.lastReply(), "> **Cumulative results**: `2-1`, win rate `66.67%` over 3 games"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}

	if err := f.run(t, "!résultats 1 0"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got, want := f.lastReply(), "> **Cumulative results**: `3-1`, win rate `75.00%` over 4 games"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}

	stored, err := f.repository.Load(context.Background(), "-100123")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.Score() != scores.NewScore(3, 1) {
		t.Fatalf("stored score = %v, want 3-1", stored.Score())
	}
	if len(f.outbound.deleted) != 2 {
		t.Fatalf("deleted = %d, want 2", len(f.outbound.deleted))
	}
	if f.outbound.deleted[0].MessageID != "m-!result fix 2 1" {
		t.Fatalf("deleted message = %q", f.outbound.deleted[0].MessageID)
	}
}

func TestFixOverwrites(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, input := range []string{"!result fix 10 10", "!result 5 5", "!result fix 1 0"} {
		if err := f.run(t, input); err != nil {
			t.Fatalf("%s: %v", input, err)
		}
	}
	if got, want := f.lastReply(), "> **Cumulative results**: `1-0`, win rate `100.0%` over 1 games"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
}

func TestViewDoesNotPersist(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if err := f.run(t, "!result view"); err != nil {
		t.Fatalf("view: %v", err)
	}
	if got, want := f.lastReply(), "> **Cumulative results**: `0-0`, win rate `-` over 0 games"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
	exists, err := f.repository.Exists(context.Background(), "-100123")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("view persisted a tracker")
	}
}

func TestInvalidArgumentsReplyWithHelp(t *testing.T) {
	tests := []string{
		"!result 51 0",
		"!result a b",
		"!result 1",
		"!result fix 1",
		"!register -2 3",
	}

	for _, input := range tests {
		input := input
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			err := f.run(t, input)
			var userErr *scorebot.UserError
			if !errors.As(err, &userErr) {
				t.Fatalf("error = %v, want *scorebot.UserError", err)
			}
			if !errors.Is(err, scores.ErrInvalidArguments) {
				t.Fatalf("error = %v, want ErrInvalidArguments", err)
			}
			if userErr.Reply != f.command.Help() {
				t.Fatalf("reply = %q, want help text", userErr.Reply)
			}
		})
	}
}

func TestDeleteFailureDoesNotFailCommand(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.outbound.deleteErr = errors.New("no permission")
	if err := f.run(t, "!result fix 1 1"); err != nil {
		t.Fatalf("fix: %v", err)
	}
	if f.lastReply() == "" {
		t.Fatal("missing report")
	}
}

func TestHelpListsEveryTrigger(t *testing.T) {
	t.Parallel()

	help := newFixture(t).command.Help()
	if !strings.HasPrefix(help, "> **Command Help: **") {
		t.Fatalf("help = %q, want header", help)
	}
	for _, trigger := range Triggers {
		if !strings.Contains(help, "> `"+trigger+" nb_victory nb_defeat`") {
			t.Fatalf("help is missing %q:\n%s", trigger, help)
		}
	}
	if !strings.Contains(help, "> `!result fix nb_victory nb_defeat`") || !strings.Contains(help, "> `!result view`") {
		t.Fatalf("help is missing fix/view forms:\n%s", help)
	}
}

func TestOnRegisterRequiresServices(t *testing.T) {
	t.Parallel()

	module := New()
	err := module.OnRegister(context.Background(), testRuntime{services: mapServices{}})
	if !errors.Is(err, scorebot.ErrServiceNotFound) {
		t.Fatalf("error = %v, want ErrServiceNotFound", err)
	}
	if len(module.Commands()) != 0 {
		t.Fatal("commands exposed before registration succeeded")
	}
}

func TestScoreLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	err := f.run(t, "!result 3 2")
	if !errors.Is(err, scores.ErrChannelNotRegistered) {
		t.Fatalf("register on fresh channel = %v, want ErrChannelNotRegistered", err)
	}
	if record := f.storedRecord(t); record != "" {
		t.Fatalf("record after denial = %q, want none", record)
	}

	steps := []struct {
		input string
		reply string
		score scores.Score
	}{
		{input: "!result fix 3 2", reply: "> **Cumulative results**: `3-2`, win rate `60.00%` over 5 games", score: scores.NewScore(3, 2)},
		{input: "!result 1 4", reply: "> **Cumulative results**: `4-6`, win rate `40.00%` over 10 games", score: scores.NewScore(4, 6)},
	}
	for _, step := range steps {
		if err := f.run(t, step.input); err != nil {
			t.Fatalf("%s: %v", step.input, err)
		}
		if got := f.lastReply(); got != step.reply {
			t.Fatalf("%s reply = %q, want %q", step.input, got, step.reply)
		}
		stored, err := f.repository.Load(context.Background(), "-100123")
		if err != nil {
			t.Fatalf("load after %s: %v", step.input, err)
		}
		if stored.Score() != step.score {
			t.Fatalf("stored after %s = %v, want %v", step.input, stored.Score(), step.score)
		}
	}

	persisted := f.storedRecord(t)
	if err := f.run(t, "!result view"); err != nil {
		t.Fatalf("view: %v", err)
	}
	if got, want := f.lastReply(), "> **Cumulative results**: `4-6`, win rate `40.00%` over 10 games"; got != want {
		t.Fatalf("view reply = %q, want %q", got, want)
	}
	if record := f.storedRecord(t); record != persisted {
		t.Fatalf("view rewrote record: %q, want %q", record, persisted)
	}

	sent := len(f.outbound.sent)
	err = f.run(t, "!result 99 1")
	var userErr *scorebot.UserError
	if !errors.As(err, &userErr) || !errors.Is(err, scores.ErrInvalidArguments) {
		t.Fatalf("out of range = %v, want invalid arguments user error", err)
	}
	if userErr.Reply != f.command.Help() {
		t.Fatalf("out of range reply = %q, want help text", userErr.Reply)
	}
	if record := f.storedRecord(t); record != persisted {
		t.Fatalf("rejected input changed record: %q, want %q", record, persisted)
	}
	if len(f.outbound.sent) != sent {
		t.Fatalf("rejected input sent %d replies", len(f.outbound.sent)-sent)
	}
}

package kernel

import (
	"context"
	"errors"
	"testing"

	"scorebot/pkg/scorebot"
)

func TestCommandRegistryFirstMatchWins(t *testing.T) {
	t.Parallel()

	first := newStubCommand("first", "!result")
	second := newStubCommand("second", "!result", "!results")
	registry := NewCommandRegistry()
	for _, command := range []*stubCommand{first, second} {
		if err := registry.Register("m", command); err != nil {
			t.Fatalf("register %s: %v", command.name, err)
		}
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "shared trigger resolves to earliest", input: "!result 1 2", want: "first"},
		{name: "unique trigger", input: "!results", want: "second"},
		{name: "no match", input: "hello", want: ""},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			command, ok := registry.FindMatch(testCase.input)
			if testCase.want == "" {
				if ok {
					t.Fatalf("matched %s, want none", command.Name())
				}
				return
			}
			if !ok {
				t.Fatal("expected a match")
			}
			if command.Name() != testCase.want {
				t.Fatalf("matched %s, want %s", command.Name(), testCase.want)
			}
		})
	}
}

func TestCommandRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	registry := NewCommandRegistry()
	if err := registry.Register("a", newStubCommand("ping", "!ping")); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := registry.Register("b", newStubCommand("ping", "!pong"))
	if !errors.Is(err, scorebot.ErrCommandAlreadyRegistered) {
		t.Fatalf("error = %v, want ErrCommandAlreadyRegistered", err)
	}
	if err := registry.Register("a", nil); err == nil {
		t.Fatal("expected nil command error")
	}
}

func TestCommandRegistryUnregister(t *testing.T) {
	t.Parallel()

	registry := NewCommandRegistry()
	_ = registry.Register("keep", newStubCommand("a", "!a"))
	_ = registry.Register("drop", newStubCommand("b", "!b"))
	registry.Unregister("drop")

	if registry.Len() != 1 {
		t.Fatalf("len = %d, want 1", registry.Len())
	}
	if _, ok := registry.FindMatch("!b"); ok {
		t.Fatal("unregistered command still matches")
	}
	if err := registry.Register("again", newStubCommand("b", "!b")); err != nil {
		t.Fatalf("re-register after unregister: %v", err)
	}
}

func TestCommandCatalogListsInMatchingOrder(t *testing.T) {
	t.Parallel()

	registry := NewCommandRegistry()
	_ = registry.Register("tracker", newStubCommand("tracker", "!result"))
	_ = registry.Register("pingpong", newStubCommand("ping", "!ping"))
	catalog := &registryCommandCatalog{registry: registry}

	commands, err := catalog.ListCommands(context.Background())
	if err != nil {
		t.Fatalf("list commands: %v", err)
	}
	if len(commands) != 2 {
		t.Fatalf("commands = %d, want 2", len(commands))
	}
	if commands[0].Name != "tracker" || commands[0].ModuleName != "tracker" || commands[0].Help != "tracker usage" {
		t.Fatalf("first = %+v", commands[0])
	}
	if commands[1].Name != "ping" {
		t.Fatalf("second = %+v", commands[1])
	}
}

func TestServiceRegistryRegisterAndResolve(t *testing.T) {
	t.Parallel()

	registry := NewServiceRegistry()
	if err := registry.Register("store", "filesystem"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("store", "sqlite"); !errors.Is(err, scorebot.ErrServiceAlreadyRegistered) {
		t.Fatalf("duplicate error = %v", err)
	}
	value, err := scorebot.ResolveAs[string](registry, "store")
	if err != nil || value != "filesystem" {
		t.Fatalf("resolve = %q, %v", value, err)
	}
	if _, err := registry.Resolve("missing"); !errors.Is(err, scorebot.ErrServiceNotFound) {
		t.Fatalf("missing error = %v", err)
	}
	if _, err := scorebot.ResolveAs[int](registry, "store"); err == nil {
		t.Fatal("expected type assertion failure")
	}
}

package kernel

import (
	"fmt"
	"sync"

	"scorebot/pkg/scorebot"
)

type commandRegistration struct {
	moduleName string
	command    scorebot.Command
}

// CommandRegistry holds commands in registration order. FindMatch returns the
// first command whose matcher accepts the input, so earlier registrations win
// when triggers overlap.
type CommandRegistry struct {
	mu      sync.RWMutex
	ordered []commandRegistration
	byName  map[string]struct{}
}

// NewCommandRegistry creates an empty registry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{byName: make(map[string]struct{})}
}

// Register appends command. Names must be unique.
func (r *CommandRegistry) Register(moduleName string, command scorebot.Command) error {
	if command == nil {
		return fmt.Errorf("register command: nil command")
	}
	name := command.Name()
	if name == "" {
		return fmt.Errorf("register command: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("register command %s: %w", name, scorebot.ErrCommandAlreadyRegistered)
	}
	r.byName[name] = struct{}{}
	r.ordered = append(r.ordered, commandRegistration{moduleName: moduleName, command: command})

	return nil
}

// Unregister removes every command owned by moduleName.
func (r *CommandRegistry) Unregister(moduleName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.ordered[:0]
	for _, registration := range r.ordered {
		if registration.moduleName == moduleName {
			delete(r.byName, registration.command.Name())
			continue
		}
		kept = append(kept, registration)
	}
	r.ordered = kept
}

// FindMatch returns the first registered command matching input.
func (r *CommandRegistry) FindMatch(input string) (scorebot.Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, registration := range r.ordered {
		if registration.command.Matches(input) {
			return registration.command, true
		}
	}

	return nil, false
}

// Len returns the number of registered commands.
func (r *CommandRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.ordered)
}

func (r *CommandRegistry) snapshot() []commandRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]commandRegistration(nil), r.ordered...)
}

package scorebot

import (
	"context"
	"slices"
	"strings"
)

// Command is one chat command.
//
// The dispatcher calls Matches on every registered command in registration
// order and runs only the first match: NeedsHelp decides between sending Help
// and calling Execute.
type Command interface {
	// Name is a stable identifier used in logs and metrics.
	Name() string
	// Matches reports whether input invokes this command.
	Matches(input string) bool
	// NeedsHelp reports whether input should be answered with Help instead of executed.
	NeedsHelp(input string) bool
	// Help returns usage text.
	Help() string
	// Execute runs the command. A *UserError reply is shown to the user.
	Execute(ctx context.Context, request Request) error
}

// Request carries one matched message into Execute.
type Request struct {
	Message Message
	// Args are the whitespace-separated tokens following the trigger.
	Args []string
}

// DefaultHelpAlias is the argument that always requests usage text.
const DefaultHelpAlias = "help"

// Triggers recognizes a command by its first whitespace-delimited token.
// Comparison ignores case.
type Triggers struct {
	tokens      []string
	helpAliases []string
}

// NewTriggers builds a matcher for tokens. DefaultHelpAlias is always a help
// alias; extra aliases add localized spellings.
func NewTriggers(tokens []string, helpAliases ...string) Triggers {
	normalized := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token = strings.ToLower(strings.TrimSpace(token)); token != "" {
			normalized = append(normalized, token)
		}
	}
	aliases := []string{DefaultHelpAlias}
	for _, alias := range helpAliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias != "" && !slices.Contains(aliases, alias) {
			aliases = append(aliases, alias)
		}
	}

	return Triggers{tokens: normalized, helpAliases: aliases}
}

// Tokens returns the trigger tokens in declaration order.
func (t Triggers) Tokens() []string {
	return slices.Clone(t.tokens)
}

// Matches reports whether the first token of input is a trigger.
func (t Triggers) Matches(input string) bool {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return false
	}

	return slices.Contains(t.tokens, strings.ToLower(fields[0]))
}

// Args returns the tokens after the trigger.
func (t Triggers) Args(input string) []string {
	fields := strings.Fields(input)
	if len(fields) <= 1 {
		return nil
	}

	return fields[1:]
}

// NeedsHelp reports whether input has no arguments or starts with a help alias.
func (t Triggers) NeedsHelp(input string) bool {
	args := t.Args(input)
	if len(args) == 0 {
		return true
	}

	return slices.Contains(t.helpAliases, strings.ToLower(args[0]))
}

package help

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"scorebot/internal/i18n"
	"scorebot/pkg/scorebot"
)

const helpCommandName = "help"

// Triggers lists the tokens recognized by the help command.
var Triggers = []string{"!help", "!aide"}

// Module replies with every registered command's usage.
type Module struct {
	triggers       scorebot.Triggers
	outbound       scorebot.Outbound
	localizer      scorebot.Localizer
	commandCatalog scorebot.CommandCatalog
}

// New creates a help module with default configuration.
func New() *Module {
	return &Module{triggers: scorebot.NewTriggers(Triggers)}
}

// Name returns the stable module identifier.
func (m *Module) Name() string {
	return "help"
}

// Commands returns the help command.
func (m *Module) Commands() []scorebot.Command {
	return []scorebot.Command{helpCommand{module: m}}
}

// OnRegister resolves dependencies required by this module.
func (m *Module) OnRegister(_ context.Context, runtime scorebot.ModuleRuntime) error {
	outbound, err := scorebot.ResolveAs[scorebot.Outbound](runtime.Services(), scorebot.ServiceOutbound)
	if err != nil {
		return fmt.Errorf("help resolve outbound: %w", err)
	}
	localizer, err := scorebot.ResolveAs[scorebot.Localizer](runtime.Services(), scorebot.ServiceLocalizer)
	if err != nil {
		return fmt.Errorf("help resolve localizer: %w", err)
	}
	commandCatalog, err := scorebot.ResolveAs[scorebot.CommandCatalog](
		runtime.Services(),
		scorebot.ServiceCommandCatalog,
	)
	if err != nil {
		return fmt.Errorf("help resolve command catalog: %w", err)
	}

	m.outbound = outbound
	m.localizer = localizer
	m.commandCatalog = commandCatalog

	return nil
}

// OnStart starts the module lifecycle.
func (m *Module) OnStart(_ context.Context) error {
	return nil
}

// OnShutdown stops the module lifecycle.
func (m *Module) OnShutdown(_ context.Context) error {
	return nil
}

type helpCommand struct {
	module *Module
}

func (c helpCommand) Name() string { return helpCommandName }

func (c helpCommand) Matches(input string) bool { return c.module.triggers.Matches(input) }

func (c helpCommand) NeedsHelp(string) bool { return false }

func (c helpCommand) Help() string {
	tokens := c.module.triggers.Tokens()
	lines := make([]string, 0, len(tokens))
	for _, token := range tokens {
		lines = append(lines, fmt.Sprintf("> `%s`", token))
	}

	return strings.Join(lines, "\n")
}

func (c helpCommand) Execute(ctx context.Context, request scorebot.Request) error {
	m := c.module
	if m.outbound == nil || m.commandCatalog == nil || m.localizer == nil {
		return fmt.Errorf("help execute: module not registered")
	}

	commands, err := m.commandCatalog.ListCommands(ctx)
	if err != nil {
		return fmt.Errorf("help list commands: %w", err)
	}
	body := renderHelp(
		m.localizer.Text(i18n.KeyHelpHeader),
		m.localizer.Text(i18n.KeyHelpNone),
		commands,
	)

	if _, err := m.outbound.SendMessage(ctx, scorebot.ReplyTo(request.Message, body)); err != nil {
		return fmt.Errorf("help send help message: %w", err)
	}

	return nil
}

// renderHelp lists command usage sorted by command name, then module name.
func renderHelp(header string, none string, commands []scorebot.RegisteredCommand) string {
	if len(commands) == 0 {
		return header + "\n" + none
	}

	sorted := append([]scorebot.RegisteredCommand(nil), commands...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name == sorted[j].Name {
			return sorted[i].ModuleName < sorted[j].ModuleName
		}
		return sorted[i].Name < sorted[j].Name
	})

	sections := make([]string, 0, len(sorted)+1)
	sections = append(sections, header)
	for _, command := range sorted {
		usage := strings.TrimSpace(command.Help)
		if usage == "" {
			usage = command.Name
		}
		sections = append(sections, usage)
	}

	return strings.Join(sections, "\n\n")
}

var (
	_ scorebot.Module  = (*Module)(nil)
	_ scorebot.Command = helpCommand{}
)

package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"scorebot/internal/i18n"
	"scorebot/pkg/scorebot"
	scores "scorebot/pkg/tracker"
)

// Triggers lists the tokens recognized by the tracker command.
var Triggers = []string{
	"!result",
	"!results",
	"!register",
	"!resultat",
	"!resultats",
	"!résultat",
	"!résultats",
}

const commandName = "tracker"

// Command records and reports the win/loss score of a channel.
type Command struct {
	triggers   scorebot.Triggers
	repository *scores.Repository
	outbound   scorebot.Outbound
	localizer  scorebot.Localizer
	logger     *slog.Logger
}

// NewCommand builds the tracker command. helpAliases extend the default
// "help" argument.
func NewCommand(
	repository *scores.Repository,
	outbound scorebot.Outbound,
	localizer scorebot.Localizer,
	logger *slog.Logger,
	helpAliases ...string,
) *Command {
	if logger == nil {
		logger = slog.Default()
	}

	return &Command{
		triggers:   scorebot.NewTriggers(Triggers, helpAliases...),
		repository: repository,
		outbound:   outbound,
		localizer:  localizer,
		logger:     logger,
	}
}

// Name returns the stable command identifier.
func (c *Command) Name() string {
	return commandName
}

// Matches reports whether input starts with one of the tracker triggers.
func (c *Command) Matches(input string) bool {
	return c.triggers.Matches(input)
}

// NeedsHelp reports whether input has no arguments or asks for help.
func (c *Command) NeedsHelp(input string) bool {
	return c.triggers.NeedsHelp(input)
}

// Help renders one usage line per trigger plus the fix and view forms.
func (c *Command) Help() string {
	params := c.localizer.Text(i18n.KeyTrackerParamWins) + " " + c.localizer.Text(i18n.KeyTrackerParamLosses)
	tokens := c.triggers.Tokens()

	lines := make([]string, 0, len(tokens)+3)
	lines = append(lines, c.localizer.Text(i18n.KeyTrackerUsageHeader))
	for _, token := range tokens {
		lines = append(lines, fmt.Sprintf("> `%s %s`", token, params))
	}
	if len(tokens) > 0 {
		lines = append(lines,
			fmt.Sprintf("> `%s %s %s`", tokens[0], fixKeyword, params),
			fmt.Sprintf("> `%s %s`", tokens[0], viewKeyword),
		)
	}

	return strings.Join(lines, "\n")
}

// Execute applies the parsed action and replies with the resulting score.
func (c *Command) Execute(ctx context.Context, request scorebot.Request) error {
	action, err := ParseAction(request.Args)
	if err != nil {
		return scorebot.NewUserError(c.Help(), err)
	}

	channelID := request.Message.ChannelID
	current, err := c.apply(ctx, channelID, action)
	if errors.Is(err, scores.ErrChannelNotRegistered) {
		return scorebot.NewUserError(c.localizer.Text(i18n.KeyTrackerNotRegistered), err)
	}
	if err != nil {
		return fmt.Errorf("tracker %s in channel %s: %w", action, channelID, err)
	}

	if _, err := c.outbound.SendMessage(ctx, scorebot.ReplyTo(request.Message, c.report(current.Score()))); err != nil {
		return fmt.Errorf("tracker send report: %w", err)
	}
	if err := c.outbound.DeleteMessage(ctx, scorebot.DeleteRequestFor(request.Message)); err != nil {
		c.logger.WarnContext(ctx, "tracker failed to delete command message",
			"channel_id", channelID,
			"message_id", request.Message.ID,
			"error", err,
		)
	}

	return nil
}

func (c *Command) apply(ctx context.Context, channelID string, action Action) (*scores.Tracker, error) {
	switch typed := action.(type) {
	case View:
		return c.repository.Load(ctx, channelID)
	case Fix:
		return c.repository.Update(ctx, channelID, func(t *scores.Tracker, _ bool) error {
			t.SetScore(typed.Score)
			return nil
		})
	case Register:
		return c.repository.Update(ctx, channelID, func(t *scores.Tracker, existed bool) error {
			if !existed {
				return fmt.Errorf("register score: %w", scores.ErrChannelNotRegistered)
			}
			t.AddScore(typed.Score)
			return nil
		})
	default:
		return nil, fmt.Errorf("unsupported tracker action %T", action)
	}
}

func (c *Command) report(score scores.Score) string {
	return c.localizer.Text(i18n.KeyTrackerReport,
		score.String(),
		score.WinRatePercent(),
		score.Total(),
	)
}

var _ scorebot.Command = (*Command)(nil)

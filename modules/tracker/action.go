package tracker

import (
	"fmt"
	"strconv"
	"strings"

	scores "scorebot/pkg/tracker"
)

// MaxGamesPerSubmission bounds each counter accepted from chat.
const MaxGamesPerSubmission = 50

const (
	viewKeyword = "view"
	fixKeyword  = "fix"
)

// Action is one parsed tracker invocation: View, Fix, or Register.
type Action interface {
	fmt.Stringer
	isAction()
}

// View reports the channel score without changing it.
type View struct{}

// Fix overwrites the channel score, creating the tracker if needed.
type Fix struct {
	Score scores.Score
}

// Register adds to the score of an existing tracker.
type Register struct {
	Score scores.Score
}

func (View) isAction()     {}
func (Fix) isAction()      {}
func (Register) isAction() {}

func (View) String() string       { return viewKeyword }
func (a Fix) String() string      { return fixKeyword + " " + a.Score.String() }
func (a Register) String() string { return "register " + a.Score.String() }

// ParseAction reads the arguments following a trigger token.
//
//	view
//	fix <victories> <defeats>
//	<victories> <defeats>
//
// Counters are integers in [0, MaxGamesPerSubmission].
func ParseAction(args []string) (Action, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("parse tracker arguments: %w: no arguments", scores.ErrInvalidArguments)
	}

	switch strings.ToLower(args[0]) {
	case viewKeyword:
		if len(args) != 1 {
			return nil, fmt.Errorf("parse tracker arguments: %w: view takes no arguments", scores.ErrInvalidArguments)
		}
		return View{}, nil
	case fixKeyword:
		score, err := parseScore(args[1:])
		if err != nil {
			return nil, err
		}
		return Fix{Score: score}, nil
	default:
		score, err := parseScore(args)
		if err != nil {
			return nil, err
		}
		return Register{Score: score}, nil
	}
}

func parseScore(args []string) (scores.Score, error) {
	if len(args) != 2 {
		return scores.Score{}, fmt.Errorf("parse tracker arguments: %w: want 2 counters, got %d",
			scores.ErrInvalidArguments, len(args))
	}
	victories, err := parseCount(args[0])
	if err != nil {
		return scores.Score{}, err
	}
	defeats, err := parseCount(args[1])
	if err != nil {
		return scores.Score{}, err
	}

	return scores.NewScore(victories, defeats), nil
}

func parseCount(raw string) (uint, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse tracker arguments: %w: %q is not an integer", scores.ErrInvalidArguments, raw)
	}
	if value < 0 || value > MaxGamesPerSubmission {
		return 0, fmt.Errorf("parse tracker arguments: %w: %d outside [0, %d]",
			scores.ErrInvalidArguments, value, MaxGamesPerSubmission)
	}

	return uint(value), nil
}

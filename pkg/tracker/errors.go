package tracker

import "errors"

var (
	// ErrInvalidTrackerData indicates a decoded record that cannot form a Tracker.
	ErrInvalidTrackerData = errors.New("tracker: invalid tracker data")
	// ErrChannelNotRegistered indicates a score submission for a channel with no tracker.
	ErrChannelNotRegistered = errors.New("tracker: channel not registered")
	// ErrInvalidArguments indicates command arguments outside the accepted grammar.
	ErrInvalidArguments = errors.New("tracker: invalid arguments")
)

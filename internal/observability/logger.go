// Package observability provides the process logger and the metrics and
// health HTTP endpoint.
package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a JSON logger writing to w at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

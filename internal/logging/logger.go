// Package logging builds the driver's slog loggers.
package logging

import (
	"log/slog"
	"os"
)

// New returns a text logger on stderr. Stdout is reserved for the protocol
// echo and the run summary, so log lines never interleave with them.
// The "error" key is renamed to "err" to match the attributes written by
// the runner and the session.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// NewNop returns a logger that discards everything. Runners, sessions and
// quiet CLI runs fall back to it when no logger is configured.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Package obslog holds the module's logger. Output is discarded by
// default; an embedding application (or the cifdump CLI's --verbose
// flag) swaps in a real handler with SetLogger.
package obslog

import (
	"io"
	"log/slog"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// L returns the current logger.
func L() *slog.Logger { return logger }

// SetLogger replaces the logger. Passing nil restores the discard
// logger.
func SetLogger(l *slog.Logger) {
	if l == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	logger = l
}

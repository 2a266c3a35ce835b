package cif

import (
	"log/slog"

	"github.com/cifkit/cifkit/internal/obslog"
)

// SetLogger installs a logger for the module's debug tracing (block and
// category boundaries, unknown-site notifications). Output is discarded
// by default; passing nil restores that.
func SetLogger(l *slog.Logger) { obslog.SetLogger(l) }

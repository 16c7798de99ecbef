package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Services receive it
// through options so tests can swap in a discard handler.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

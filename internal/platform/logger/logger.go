package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output so the
// platform's log pipeline can index visit ids and request ids.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

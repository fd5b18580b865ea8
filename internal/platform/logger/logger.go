package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. JSON output so edge log pipelines
// can index fields without parsing.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

package logging

import (
	"log/slog"
	"os"
)

// SetupJSON replaces slog's default logger with a JSON handler writing to
// stdout at the given level. Call once at process start.
func SetupJSON(level slog.Level) {
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	)
	slog.SetDefault(logger)
}

package topogo

import (
	"io"
	"log/slog"
	"os"
)

/*
Returns the logger used when `Options.Logger` is nil. With `debug`, every
statement is logged to stderr at debug level. Otherwise only statement failures
are logged.
*/
func NewLogger(debug bool) *slog.Logger {
	return NewLoggerTo(os.Stderr, debug)
}

// Same as `NewLogger` but writes to the given writer.
func NewLoggerTo(out io.Writer, debug bool) *slog.Logger {
	level := slog.LevelError
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}


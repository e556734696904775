package monitor

import (
	"io"
	"log/slog"

	"github.com/phsym/console-slog"
)

// NewLogger returns a console logger, or a JSON one when asJSON is
// set.  verbose lowers the level to debug.
func NewLogger(w io.Writer, asJSON, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	if asJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					a.Key = "ts"
				}
				return a
			},
		}))
	}
	return slog.New(console.NewHandler(w, &console.HandlerOptions{
		AddSource: verbose,
		Level:     level,
	}))
}

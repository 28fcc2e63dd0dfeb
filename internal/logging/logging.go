package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	cfg "github.com/Catorpilor/counter/internal/config"
)

// Setup installs the default logger. Logs go to stderr so they do not mix
// with the rendered view on stdout.
func Setup(c cfg.LoggingConfig) *slog.Logger {
	l := New(os.Stderr, c)
	slog.SetDefault(l)
	return l
}

func New(w io.Writer, c cfg.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Level)}
	var h slog.Handler
	if c.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

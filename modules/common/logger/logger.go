package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger.
// format "json" writes one JSON object per line; anything else uses the console writer.
func Setup(level, format string) {
	Configure(os.Stderr, level, format)
}

// Configure is Setup with an explicit destination.
func Configure(w io.Writer, level, format string) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	out := w
	if !strings.EqualFold(format, "json") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

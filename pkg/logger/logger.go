package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	// Log is the global logger instance
	Log   zerolog.Logger
	level = zerolog.InfoLevel
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano
	Configure(os.Stdout, FormatConsole)
}

// Configure points the global loggers at out. Console output is human
// readable; json emits one event per line for log shippers. The zerolog/log
// package logger follows so every package shares one sink.
func Configure(out io.Writer, format string) {
	if !strings.EqualFold(strings.TrimSpace(format), FormatJSON) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"}
	}
	Log = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
	log.Logger = Log
}

// SetLevel parses levelStr and applies it globally. Unknown levels fall back
// to info.
func SetLevel(levelStr string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(levelStr)))
	if err != nil || parsed == zerolog.NoLevel {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		parsed = zerolog.InfoLevel
	}
	level = parsed
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
	log.Logger = Log
}

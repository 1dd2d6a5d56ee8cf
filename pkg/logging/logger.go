package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.Nop()
	ready  bool
)

// InitLogging initializes logging. Debug mode writes human readable
// console output; anything else writes JSON lines to stdout.
func InitLogging(mode, level string) {
	var w io.Writer = os.Stdout
	if mode == "debug" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	SetOutput(w, level)
}

// SetOutput points the logger at w. Tests use it to capture output.
func SetOutput(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()

	zerolog.TimeFieldFormat = time.RFC3339
	logger = zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
	ready = true
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func current() (zerolog.Logger, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return logger, ready
}

// Debugf logs debug level messages
func Debugf(format string, v ...interface{}) {
	if l, ok := current(); ok {
		l.Debug().Msgf(format, v...)
	}
}

// Infof logs info level messages
func Infof(format string, v ...interface{}) {
	if l, ok := current(); ok {
		l.Info().Msgf(format, v...)
	}
}

// Warnf logs warning level messages
func Warnf(format string, v ...interface{}) {
	if l, ok := current(); ok {
		l.Warn().Msgf(format, v...)
	}
}

// Errorf logs error level messages
func Errorf(format string, v ...interface{}) {
	if l, ok := current(); ok {
		l.Error().Msgf(format, v...)
	}
}

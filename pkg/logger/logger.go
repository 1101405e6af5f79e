package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Leveled logger used across authweb.
// - package-level API so handlers and services can log without plumbing
// - zerolog underneath (JSON lines on stdout)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu     sync.RWMutex
	logger zerolog.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	level  Level          = LevelInfo
)

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	s := strings.ToLower(strings.TrimSpace(l))
	switch s {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
}

func zeroLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	}
	return zerolog.InfoLevel
}

// Logger returns the underlying zerolog logger filtered at the current level.
// Used by middleware that wants structured fields instead of format strings.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger.Level(zeroLevel(level))
}

func Debugf(format string, v ...interface{}) {
	l := Logger()
	l.Debug().Msgf(format, v...)
}

func Infof(format string, v ...interface{}) {
	l := Logger()
	l.Info().Msgf(format, v...)
}

func Warnf(format string, v ...interface{}) {
	l := Logger()
	l.Warn().Msgf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	l := Logger()
	l.Error().Msgf(format, v...)
}

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}

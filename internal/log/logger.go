// Package log provides a global logger with a configurable logging level. The intended use is for
// development builds and the bundled CLIs; library consumers can silence it with SetLevel(LevelNone).
package log

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level int

const (
	LevelNone Level = iota
	LevelError
	LevelWarning
	LevelInfo
	LevelDebug
)

var (
	logMutex       sync.Mutex
	globalLogLevel = LevelError
	logger         = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
)

// SetLevel sets the global logging level.
func SetLevel(level Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	globalLogLevel = level
}

func logLevel() Level {
	logMutex.Lock()
	defer logMutex.Unlock()
	return globalLogLevel
}

func Debug(format string, a ...interface{}) {
	if logLevel() >= LevelDebug {
		logger.Debug().Msgf(format, a...)
	}
}

func Info(format string, a ...interface{}) {
	if logLevel() >= LevelInfo {
		logger.Info().Msgf(format, a...)
	}
}

func Warning(format string, a ...interface{}) {
	if logLevel() >= LevelWarning {
		logger.Warn().Msgf(format, a...)
	}
}

func Error(format string, a ...interface{}) {
	if logLevel() >= LevelError {
		logger.Error().Msgf(format, a...)
	}
}

// Package log provides a process-wide leveled logger used by every other
// package. It wraps zerolog with a console writer so operators get readable
// output without pulling in a separate formatting layer.
package log

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger instance. Packages log through the
// package-level helper functions below rather than touching this directly.
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	With().
	Timestamp().
	Logger()

// SetLevel sets the global log level from a string value (debug, info, warn,
// error). Unknown values fall back to info.
func SetLevel(level string) {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		l = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(l)
}

// Debug logs a message at debug level.
func Debug(args ...interface{}) { Logger.Debug().Msg(sprint(args...)) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...interface{}) { Logger.Debug().Msgf(format, args...) }

// Debugln logs a message at debug level, same as Debug (kept for call-site parity).
func Debugln(args ...interface{}) { Logger.Debug().Msg(sprint(args...)) }

// Info logs a message at info level.
func Info(args ...interface{}) { Logger.Info().Msg(sprint(args...)) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...interface{}) { Logger.Info().Msgf(format, args...) }

// Infoln logs a message at info level.
func Infoln(args ...interface{}) { Logger.Info().Msg(sprint(args...)) }

// Warn logs a message at warn level.
func Warn(args ...interface{}) { Logger.Warn().Msg(sprint(args...)) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...interface{}) { Logger.Warn().Msgf(format, args...) }

// Warnln logs a message at warn level.
func Warnln(args ...interface{}) { Logger.Warn().Msg(sprint(args...)) }

// Error logs a message at error level.
func Error(args ...interface{}) { Logger.Error().Msg(sprint(args...)) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...interface{}) { Logger.Error().Msgf(format, args...) }

// Errorln logs a message at error level.
func Errorln(args ...interface{}) { Logger.Error().Msg(sprint(args...)) }

func sprint(args ...interface{}) string {
	return fmt.Sprint(args...)
}

// Package logging provides structured logging using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the global logger instance.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level to output.
	Level zerolog.Level
	// Pretty enables human-readable console output.
	Pretty bool
	// File, when set, additionally writes logs to a rotating file.
	File string
}

// Init initializes the global logger.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stderr
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		out = zerolog.MultiLevelWriter(out, rotator)
	}

	Logger = zerolog.New(out).Level(cfg.Level).With().Timestamp().Logger()
}

// ParseLevel parses a log level string (case-insensitive). Unrecognized
// values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "FATAL":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug starts a debug level message on the global logger.
func Debug() *zerolog.Event { return Logger.Debug() }

// Info starts an info level message on the global logger.
func Info() *zerolog.Event { return Logger.Info() }

// Warn starts a warn level message on the global logger.
func Warn() *zerolog.Event { return Logger.Warn() }

// Error starts an error level message on the global logger.
func Error() *zerolog.Event { return Logger.Error() }

// Fatal starts a fatal level message on the global logger.
func Fatal() *zerolog.Event { return Logger.Fatal() }

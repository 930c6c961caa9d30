// Package logging configures structured zerolog logging for the harvester.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs per-page harvest flow and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs harvest start and completion and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs transport failures, retries and torn output.
	LevelWarn LogLevel = "warn"

	// LevelError logs failed harvests and startup errors only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ParseLevel validates a level name from configuration.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.TimeOnly}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a logger tagged with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ForApp derives a logger tagged with an app ID.
func ForApp(logger zerolog.Logger, appID string) zerolog.Logger {
	return logger.With().Str("app_id", appID).Logger()
}

// Log Level Guidelines:
//
// Debug: per-page flow
//   - Page fetched (reviews, num_reviews, total_reviews)
//   - Page processed (written, duplicates, offset)
//   - Store appends, worker shutdown
//
// Info: harvest lifecycle
//   - Run start and summary
//   - Harvest start (resumed, offset, total) and completion
//   - Stored output loaded
//
// Warn: conditions the harvest recovers from
//   - Non-200 responses and network failures
//   - Retry attempts and store API cooldowns
//   - Torn or undecodable rows dropped from stored output
//   - Progress reports that could not be written
//
// Error: conditions that end an app's harvest or the process
//   - Failed harvests (API failure, exhausted retries, write errors)
//   - Startup errors (configuration, app list, Redis)
//
// Context Fields:
//   - component: store, steam, harvest, driver, ratelimit
//   - app_id: Steam app being harvested
//   - cursor: resume token of the request
//   - offset, total: harvest position
//   - status, error_class: response status and classification

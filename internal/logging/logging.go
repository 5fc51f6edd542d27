// Package logging provides application-wide logging configuration.
package logging

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gantrylabs/gantry/internal/events"
)

// Output formats understood by Init.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Init configures the global logger. Level is any zerolog level name;
// format selects human-readable console output or raw JSON lines,
// both on stderr.
func Init(level, format string) error {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(parsed)

	switch format {
	case FormatJSON:
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	case FormatConsole, "":
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// EventObserver returns a bus observer that logs every event with its
// identifying fields. Subscribing it turns the event stream into an
// activity log.
func EventObserver() events.Observer {
	return func(e events.Event) error {
		entry := log.Info().
			Str("event", string(e.Type)).
			Time("at", e.Timestamp)
		if e.TaskID != "" {
			entry = entry.Str("task_id", e.TaskID)
		}
		for key, value := range e.Payload {
			entry = entry.Interface(key, value)
		}
		entry.Msg("bus event")
		return nil
	}
}

package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns the process-wide zerolog Logger. Both binaries tag
// their lines with a service name so a shared log sink can tell the
// ingestor and the reporter apart. APP_ENV=dev (or development) switches
// to the human-friendly console writer.
func NewLogger(env, service string) zerolog.Logger {
	l := zerolog.New(os.Stdout)
	if env == "dev" || env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return l.With().Timestamp().Str("service", service).Logger()
}

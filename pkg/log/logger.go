package log

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Logger = zerolog.Logger

// New builds the root logger. Local environments get a human-readable console
// writer; everywhere else stays structured JSON. Every line carries the
// service name so aggregated logs stay attributable.
func New(env, service string) Logger {
	level := zerolog.InfoLevel
	if env == "local" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return log.Level(level).With().Str("service", service).Logger()
}

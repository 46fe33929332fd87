// Package logx configures the process-wide zerolog logger. Importing
// pkg/logger/autoload wires it from LOG_* environment variables.
package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects output format and verbosity.
type Config struct {
	Debug        bool `split_words:"true" default:"false"`
	PrettyFormat bool `split_words:"true" default:"false"`
}

// Init replaces the global zerolog logger. The zero Config yields JSON
// output on stdout at info level; PrettyFormat switches to the console
// writer and Debug lowers the level.
func Init(conf Config) {
	out := io.Writer(os.Stdout)
	if conf.PrettyFormat {
		out = zerolog.NewConsoleWriter()
	}

	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Stack().
		Logger()
}

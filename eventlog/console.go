package eventlog

import (
	"os"

	"github.com/rs/zerolog"
)

// NewConsoleLogger builds the zerolog console logger used to mirror sink
// output to the operator's terminal: colorized, human-readable, timestamped.
func NewConsoleLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

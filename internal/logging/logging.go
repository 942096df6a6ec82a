package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Development gets a human-readable
// console writer at debug level; everything else logs JSON at info level.
func Init(environment string) {
	zerolog.TimestampFieldName = "timestamp"

	w := io.Writer(os.Stdout)
	level := zerolog.InfoLevel

	if environment == "development" {
		level = zerolog.DebugLevel
		console := zerolog.NewConsoleWriter()
		console.Out = os.Stdout
		console.TimeFormat = time.DateTime
		w = console
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

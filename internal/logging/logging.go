// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// LevelEnv overrides the level chosen from the verbose flag.
const LevelEnv = "DEPLOY_DLL_LOG_LEVEL"

// New returns a console logger writing to w. Verbose selects debug level;
// otherwise info. DEPLOY_DLL_LOG_LEVEL wins over both when it parses.
func New(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if env := strings.TrimSpace(os.Getenv(LevelEnv)); env != "" {
		if parsed, err := zerolog.ParseLevel(env); err == nil {
			level = parsed
		}
	}

	return NewAtLevel(w, level)
}

// NewAtLevel returns a console logger writing to w at a fixed level that
// ignores DEPLOY_DLL_LOG_LEVEL.
func NewAtLevel(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(consoleWriter(w)).With().Timestamp().Logger().Level(level)
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
		cw.Out = w
		cw.NoColor = true
		cw.TimeFormat = "15:04:05"
		cw.PartsOrder = []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			"component",
			zerolog.MessageFieldName,
		}
		cw.FieldsExclude = []string{"component"}
	})
}

// Component derives a logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

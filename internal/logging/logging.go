// Package logging configures the structured logger used by every riskbatch
// process. Grounded on cuemby-warren's pkg/log, which wraps rs/zerolog with
// a process-wide default logger and level parsed from config; the teacher
// repo itself only used stdlib log/fmt.Printf, which the rest of the
// retrieval pack treats as the exception rather than the rule.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger for component (e.g. "orchestrator", "worker")
// at the given level ("debug", "info", "warn", "error"; unrecognized values
// fall back to "info").
func New(component string, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	return zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

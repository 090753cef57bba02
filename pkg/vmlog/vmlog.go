// Package vmlog owns the process-wide logger the orchestration layer
// (driver, module loader, CLI) writes through. Library packages — the
// scope analyzer, compiler, VM — never log; everything they have to say
// is a diagnostic or an error value.
package vmlog

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the shared instance. It defaults to warn-level text output
// on stderr; the CLI raises it to debug with --verbose.
var Logger = logrus.New()

func init() {
	Logger.SetLevel(logrus.WarnLevel)
	Logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
}

// SetVerbose switches the shared logger to debug level (assembled
// bytecode sizes, per-module load events).
func SetVerbose(verbose bool) {
	if verbose {
		Logger.SetLevel(logrus.DebugLevel)
	} else {
		Logger.SetLevel(logrus.WarnLevel)
	}
}

// SetOutput redirects the shared logger, used by tests to keep output
// quiet and by the CLI when writing to a log file.
func SetOutput(w io.Writer) { Logger.SetOutput(w) }

package logger

import corelogger "github.com/kilianp07/ecodispatch/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// New returns a Logger for the given component at the process-wide level set
// by SetLevel. The output format follows the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}

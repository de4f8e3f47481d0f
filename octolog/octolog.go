// Package octolog is a thin leveled wrapper around the standard
// library's log package, matching elprep's own convention (main.go,
// filters/*.go) of calling log.Println/log.Fatal/log.Panic directly
// rather than depending on a third-party structured-logging library.
package octolog

import "log"

// Level orders the severities this wrapper recognises.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger wraps the standard logger with a minimum level filter.
type Logger struct {
	Min    Level
	target *log.Logger
}

// New builds a Logger writing through l (or the standard library's
// default logger if l is nil).
func New(min Level, l *log.Logger) *Logger {
	if l == nil {
		l = log.Default()
	}
	return &Logger{Min: min, target: l}
}

func (lg *Logger) log(level Level, prefix, format string, args []interface{}) {
	if level < lg.Min {
		return
	}
	lg.target.Printf(prefix+format, args...)
}

// Debugf logs at LevelDebug.
func (lg *Logger) Debugf(format string, args ...interface{}) {
	lg.log(LevelDebug, "DEBUG ", format, args)
}

// Infof logs at LevelInfo.
func (lg *Logger) Infof(format string, args ...interface{}) {
	lg.log(LevelInfo, "INFO ", format, args)
}

// Warnf logs at LevelWarn.
func (lg *Logger) Warnf(format string, args ...interface{}) {
	lg.log(LevelWarn, "WARN ", format, args)
}

// Errorf logs at LevelError.
func (lg *Logger) Errorf(format string, args ...interface{}) {
	lg.log(LevelError, "ERROR ", format, args)
}

// Fatalf logs unconditionally and exits, the same convention elprep's
// main.go uses for unrecoverable top-level errors.
func (lg *Logger) Fatalf(format string, args ...interface{}) {
	lg.target.Fatalf(format, args...)
}

// Panicf logs unconditionally and panics, elprep's convention
// (filters/*.go) for invariant violations discovered deep in a call
// stack where returning an error up through every frame would be pure
// ceremony.
func (lg *Logger) Panicf(format string, args ...interface{}) {
	lg.target.Panicf(format, args...)
}

// Package monitoring holds the diagnostic logger shared by the engine, the
// episode store and the dataset writer.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Debugf logs only when verbose output has been enabled with SetVerbose.
func Debugf(format string, v ...interface{}) {
	if verbose {
		Logf(format, v...)
	}
}

var verbose bool

// SetVerbose toggles Debugf output.
func SetVerbose(on bool) { verbose = on }

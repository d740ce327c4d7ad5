package monitoring

import "log"

// Logf is the package-level diagnostic logger used by the long-running
// loops (intake, hub, gesture pipeline). It defaults to log.Printf and may
// be replaced via SetLogger so tests can capture or mute output.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Package monitoring carries the process-wide diagnostic logger that
// pipeline stages and the duplexd binary report through.
package monitoring

import "log"

// Logf is the shared diagnostic logger. It defaults to log.Printf; tests
// mute or capture it and embedders redirect it through SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

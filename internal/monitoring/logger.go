// Package monitoring carries the shared diagnostic logger for the pose
// matching service.
package monitoring

import "log"

// Logf is the package-level diagnostic logger, defaulting to log.Printf.
// Long-running components log through it so tests and embedding callers
// can redirect or mute output with SetLogger.
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

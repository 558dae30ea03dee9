// Package monitoring carries the diagnostic logging hook shared by the
// decoding layers and the command-line tools.
package monitoring

import "log"

// Logf emits one diagnostic line. It defaults to log.Printf; decode tracing
// in the zebra layer goes through it so tools and tests can redirect or mute
// the output without touching the stdlib logger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. A nil f mutes logging entirely.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

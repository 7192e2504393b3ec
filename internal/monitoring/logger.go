// Package monitoring holds the diagnostic logger shared by the library
// packages.
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

// Sampled reports whether the nth occurrence of a repeating event should be
// logged: the first one and then every every-th.
func Sampled(n, every uint64) bool {
	return n == 1 || (every > 0 && n%every == 0)
}

// LogSampled logs through Logf when Sampled(n, every), appending the count.
func LogSampled(n, every uint64, format string, v ...interface{}) {
	if !Sampled(n, every) {
		return
	}
	Logf(format+" (%d so far)", append(v, n)...)
}

// Package monitoring holds the diagnostic logger shared by the trace,
// statistic and export packages.
package monitoring

import "log"

// Logf reports recoverable data problems such as dropped rows or ignored
// metadata lines. It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf reports per-step details. It is muted unless SetDebug(true).
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces Logf. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebug routes Debugf through Logf when enabled.
func SetDebug(enabled bool) {
	if !enabled {
		Debugf = func(string, ...interface{}) {}
		return
	}
	Debugf = func(format string, v ...interface{}) {
		Logf("debug: "+format, v...)
	}
}

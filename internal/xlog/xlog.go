// Package xlog is a minimal leveled logger over the standard library's
// log package, in the style pkg/blobserver's own files use: plain
// log.Printf calls gated by a boolean flag, rather than a structured
// logging framework.
package xlog

import "log"

// Logger gates verbose diagnostic output behind a boolean, the way
// cmd/pk-put gates its own "-logcache"/"-verbose_http" output.
type Logger struct {
	Verbose bool
	prefix  string
}

// New returns a Logger that prefixes every message with prefix.
func New(prefix string) *Logger {
	return &Logger{prefix: prefix}
}

// Printf always logs, regardless of Verbose.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	log.Printf(l.prefix+format, args...)
}

// Debugf logs only when Verbose is set.
func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || !l.Verbose {
		return
	}
	log.Printf(l.prefix+format, args...)
}

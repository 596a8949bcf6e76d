// Package rlog is the library's free-form diagnostic logger. Countable
// events (sends, retries, drops, table swaps) are Prometheus metrics
// (internal/telemetry) instead; rlog is for the lines an operator reads,
// not scrapes — rejected route-table records, verbosity changes, periodic
// counter dumps.
//
// Grounded on the teacher's control/hotreload.go hook-registration style:
// a package-level sink that can be redirected (or silenced) by the owner
// rather than a single hardwired global logger. No structured-logging
// library appears anywhere in the retrieved corpus for this teacher, so
// this wrapper is deliberately stdlib `log`.
package rlog

import (
	"log"
	"os"
	"sync"
)

var (
	mu  sync.Mutex
	std = log.New(os.Stderr, "", log.LstdFlags)
)

// SetOutput redirects every subsequent Infof/Warnf/Errorf call to l.
func SetOutput(l *log.Logger) {
	mu.Lock()
	std = l
	mu.Unlock()
}

func logf(level, format string, args ...any) {
	mu.Lock()
	l := std
	mu.Unlock()
	l.Printf("["+level+"] "+format, args...)
}

// Infof logs a routine diagnostic line.
func Infof(format string, args ...any) { logf("info", format, args...) }

// Warnf logs a recoverable anomaly, e.g. a rejected route-table record.
func Warnf(format string, args ...any) { logf("warn", format, args...) }

// Errorf logs an operation failure.
func Errorf(format string, args ...any) { logf("error", format, args...) }

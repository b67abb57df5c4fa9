// Package xlog provides the process-wide structured logger.
package xlog

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// L is the process-wide logger. The satellite is single-threaded in its
// event loop but goroutines used for the readiness notifier and selection
// transfer pipes also log through it, so charmbracelet/log's internal
// locking is relied on rather than adding our own.
var L = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05.000",
})

func init() {
	SetLevel(os.Getenv("LOG_LEVEL"))
}

// SetLevel sets the logger level from a string; unrecognised values fall
// back to info.
func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		L.SetLevel(log.DebugLevel)
	case "WARN", "WARNING":
		L.SetLevel(log.WarnLevel)
	case "ERROR":
		L.SetLevel(log.ErrorLevel)
	case "FATAL":
		L.SetLevel(log.FatalLevel)
	default:
		L.SetLevel(log.InfoLevel)
	}
}

// With returns a sub-logger carrying the given key/value pairs, the way
// every component tags its log lines with the subsystem and object ids
// involved (xid, surface, serial, output).
func With(keyvals ...interface{}) *log.Logger {
	return L.With(keyvals...)
}

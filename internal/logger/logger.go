// Package logger provides leveled logging for the kbase CLI and services.
// Messages go through charmbracelet/log. Debug and info output is shown only
// in verbose mode; warnings and errors are always written so that degraded
// persistence and failed ingestions reach the operator.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

// Format selects how log records are rendered.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts a flag value into a Format. Unknown values fail.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown log format %q (want text or json)", s)
	}
}

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	format            = FormatText
	override          *charmlog.Level
	current           = build()
)

// build creates the charm logger for the current settings (caller must hold lock).
func build() *charmlog.Logger {
	level := charmlog.WarnLevel
	if verbose {
		level = charmlog.DebugLevel
	}
	if override != nil {
		level = *override
	}

	opts := charmlog.Options{
		Level:     level,
		Formatter: charmlog.TextFormatter,
	}
	if format == FormatJSON {
		opts.Formatter = charmlog.JSONFormatter
		opts.ReportTimestamp = true
		opts.TimeFormat = "2006-01-02T15:04:05.000Z07:00"
	}
	return charmlog.NewWithOptions(output, opts)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	current = build()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	current = build()
}

// SetFormat switches between text and JSON records.
func SetFormat(f Format) {
	mu.Lock()
	defer mu.Unlock()
	format = f
	current = build()
}

// SetLevel pins the level by name (debug, info, warn, error), taking
// precedence over verbose mode. An empty name clears the override.
func SetLevel(name string) error {
	mu.Lock()
	defer mu.Unlock()
	if strings.TrimSpace(name) == "" {
		override = nil
		current = build()
		return nil
	}
	lvl, err := charmlog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return fmt.Errorf("unknown log level %q", name)
	}
	override = &lvl
	current = build()
	return nil
}

// Debug logs a message if verbose mode is enabled.
func Debug(msgFormat string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	current.Debugf(msgFormat, args...)
}

// Section logs a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	current.Infof("=== %s ===", name)
}

// Info logs an informational message if verbose mode is enabled.
func Info(msgFormat string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	current.Infof(msgFormat, args...)
}

// Warn logs a warning.
func Warn(msgFormat string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	current.Warnf(msgFormat, args...)
}

// Error logs an error.
func Error(msgFormat string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	current.Errorf(msgFormat, args...)
}

// With returns a logger carrying the given key/value pairs, for components
// that log structured fields. It reflects the settings at the time of the call.
func With(keyvals ...any) *charmlog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current.With(keyvals...)
}

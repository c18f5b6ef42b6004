// Package logger provides component-tagged logging for jabberclaw.
//
// Every log line carries a component tag ("bot", "xmpp", "config", ...)
// so a single gateway process with several workers stays greppable.
package logger

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// Level mirrors slog levels with the names used across the codebase.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelVar slog.LevelVar

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	levelVar.Set(slog.LevelInfo)
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &levelVar})
	defaultLogger.Store(slog.New(h))
}

// SetLevel changes the minimum level for all subsequent log calls.
func SetLevel(l Level) {
	switch l {
	case DEBUG:
		levelVar.Set(slog.LevelDebug)
	case INFO:
		levelVar.Set(slog.LevelInfo)
	case WARN:
		levelVar.Set(slog.LevelWarn)
	case ERROR:
		levelVar.Set(slog.LevelError)
	}
}

// SetOutput replaces the backing handler. Used by tests to silence output.
func SetOutput(l *slog.Logger) {
	defaultLogger.Store(l)
}

func log(level slog.Level, component, msg string, fields map[string]any) {
	attrs := make([]any, 0, 2+2*len(fields))
	attrs = append(attrs, "component", component)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	defaultLogger.Load().Log(context.Background(), level, msg, attrs...)
}

// DebugC logs a debug message for a component.
func DebugC(component, msg string) { log(slog.LevelDebug, component, msg, nil) }

// DebugCF logs a debug message for a component with structured fields.
func DebugCF(component, msg string, fields map[string]any) {
	log(slog.LevelDebug, component, msg, fields)
}

// InfoC logs an info message for a component.
func InfoC(component, msg string) { log(slog.LevelInfo, component, msg, nil) }

// InfoCF logs an info message for a component with structured fields.
func InfoCF(component, msg string, fields map[string]any) {
	log(slog.LevelInfo, component, msg, fields)
}

// WarnC logs a warning for a component.
func WarnC(component, msg string) { log(slog.LevelWarn, component, msg, nil) }

// WarnCF logs a warning for a component with structured fields.
func WarnCF(component, msg string, fields map[string]any) {
	log(slog.LevelWarn, component, msg, fields)
}

// ErrorC logs an error for a component.
func ErrorC(component, msg string) { log(slog.LevelError, component, msg, nil) }

// ErrorCF logs an error for a component with structured fields.
func ErrorCF(component, msg string, fields map[string]any) {
	log(slog.LevelError, component, msg, fields)
}

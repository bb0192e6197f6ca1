package logger

import "github.com/baditaflorin/go_record_linkage/internal/ports"

// NoopLogger discards all log output. Used in tests and benchmarks.
type NoopLogger struct{}

// NewNoopLogger creates a logger that drops everything.
func NewNoopLogger() ports.Logger {
	return NoopLogger{}
}

// Debug drops the message.
func (NoopLogger) Debug(string, ...interface{}) {}

// Info drops the message.
func (NoopLogger) Info(string, ...interface{}) {}

// Warn drops the message.
func (NoopLogger) Warn(string, ...interface{}) {}

// Error drops the message.
func (NoopLogger) Error(string, ...interface{}) {}

// Close is a no-op.
func (NoopLogger) Close() error { return nil }

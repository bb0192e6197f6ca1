package ports

// Logger defines the structured logging interface used across the engine.
// Implementations adapt concrete loggers (see internal/adapters/logger).
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Close() error
}

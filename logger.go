package simhost

// Logger defines the interface for host logging.
// The host uses structured logging with key-value pairs so that
// applications control how core and module logs appear.
//
// The Logger interface uses variadic arguments in key-value pairs:
//
//	logger.Info("message", "key1", "value1", "key2", "value2")
//
// *slog.Logger satisfies this interface directly.
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	// Used for degraded operation, e.g. modules skipped under AutoDisable.
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, args ...any)
}

// Log channels. Every record carries one under the "channel" key so system
// and simulation output can be split downstream.
const (
	ChannelSystem     = "system"
	ChannelSimulation = "simulation"
)

// channelLogger prefixes every record with a fixed channel attribute.
type channelLogger struct {
	base    Logger
	channel string
}

// WithChannel returns a Logger that tags every record with the given channel.
func WithChannel(base Logger, channel string) Logger {
	if cl, ok := base.(*channelLogger); ok {
		base = cl.base
	}
	return &channelLogger{base: base, channel: channel}
}

func (l *channelLogger) with(args []any) []any {
	return append([]any{"channel", l.channel}, args...)
}

func (l *channelLogger) Info(msg string, args ...any)  { l.base.Info(msg, l.with(args)...) }
func (l *channelLogger) Error(msg string, args ...any) { l.base.Error(msg, l.with(args)...) }
func (l *channelLogger) Warn(msg string, args ...any)  { l.base.Warn(msg, l.with(args)...) }
func (l *channelLogger) Debug(msg string, args ...any) { l.base.Debug(msg, l.with(args)...) }

type discardLogger struct{}

func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Debug(string, ...any) {}

// NopLogger returns a Logger that drops everything.
func NopLogger() Logger { return discardLogger{} }

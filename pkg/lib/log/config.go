package log

type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

type LogFormat string

const (
	LogFormatJSON    LogFormat = "json"
	LogFormatConsole LogFormat = "console"
)

type LogOutput string

const (
	LogOutputStdout LogOutput = "stdout"
	LogOutputStderr LogOutput = "stderr"
)

// Config controls the process logger. Tracking sessions and fetches log at
// info, individual fixes at debug.
type Config struct {
	Level  LogLevel  `env:"LOG_LEVEL,default=info" validate:"required,oneof=trace debug info warn error fatal"`
	Format LogFormat `env:"LOG_FORMAT,default=json" validate:"required,oneof=json console"`
	// Output is overridden by tools that print results on stdout.
	Output LogOutput `env:"LOG_OUTPUT,default=stdout" validate:"required,oneof=stdout stderr"`
	// Caller adds file:line to every entry.
	Caller bool `env:"LOG_CALLER,default=false"`
	// Component is attached to every log line, useful when several binaries share a sink.
	Component string `env:"LOG_COMPONENT,default=wanderlens"`
}

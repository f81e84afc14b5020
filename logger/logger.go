package logger

import (
	"log/slog"

	"github.com/sandexzx/PDF-Matrix-Grabber/tracer"
)

// LogLevel represents log severity.
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// LogFunc is a single logger function that handles all levels.
type LogFunc func(level LogLevel, msg string, keyvals ...interface{})

var logFunc LogFunc = slogLogger(slog.Default())

// SetLogger sets the global logger function.
func SetLogger(f LogFunc) {
	if f != nil {
		logFunc = f
	}
}

// slogLogger adapts a *slog.Logger into a LogFunc, the default backend for
// the package so a caller that never calls SetLogger still gets structured
// output instead of silence.
func slogLogger(l *slog.Logger) LogFunc {
	return func(level LogLevel, msg string, keyvals ...interface{}) {
		switch level {
		case DebugLevel:
			l.Debug(msg, keyvals...)
		case InfoLevel:
			l.Info(msg, keyvals...)
		case WarnLevel:
			l.Warn(msg, keyvals...)
		case ErrorLevel:
			l.Error(msg, keyvals...)
		default:
			l.Info(msg, keyvals...)
		}
	}
}

// Debug logs a message at debug level.
// If the last keyvals element is a bool and true, it is treated as a trace
// flag: the message is additionally appended to the tracer buffer.
func Debug(msg string, keyvals ...interface{}) {
	trace := false
	if len(keyvals) > 0 {
		if b, ok := keyvals[len(keyvals)-1].(bool); ok {
			trace = b
			keyvals = keyvals[:len(keyvals)-1]
		}
	}
	logFunc(DebugLevel, msg, keyvals...)

	if trace {
		tracer.Log(msg)
	}
}

// Info logs a message at info level.
func Info(msg string, keyvals ...interface{}) {
	logFunc(InfoLevel, msg, keyvals...)
}

// Warn logs a message at warn level.
func Warn(msg string, keyvals ...interface{}) {
	logFunc(WarnLevel, msg, keyvals...)
}

// Error logs a message at error level.
func Error(msg string, keyvals ...interface{}) {
	logFunc(ErrorLevel, msg, keyvals...)
}

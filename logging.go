package geoman

import (
	"time"

	"go.uber.org/zap"
)

// LogEvent describes one step of an orchestration operation.
type LogEvent struct {
	Op       string
	Target   string
	Shape    ShapeKind
	Expr     string
	Duration time.Duration
	Err      error
}

// Logger records orchestration events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

type zapLogger struct {
	logger *zap.Logger
}

// NewZapLogger adapts a zap logger. Failed steps are logged at warn level,
// everything else at debug.
func NewZapLogger(logger *zap.Logger) Logger {
	if logger == nil {
		return noopLogger{}
	}
	return zapLogger{logger: logger.Named("geoman")}
}

func (l zapLogger) Log(event LogEvent) {
	fields := []zap.Field{zap.String("op", event.Op)}
	if event.Target != "" {
		fields = append(fields, zap.String("target", event.Target))
	}
	if event.Shape != "" {
		fields = append(fields, zap.Stringer("shape", event.Shape))
	}
	if event.Expr != "" {
		fields = append(fields, zap.String("expr", event.Expr))
	}
	if event.Duration > 0 {
		fields = append(fields, zap.Duration("duration", event.Duration))
	}
	if event.Err != nil {
		l.logger.Warn("geoman step failed", append(fields, zap.Error(event.Err))...)
		return
	}
	l.logger.Debug("geoman step", fields...)
}

package logging

import "context"

// Level is the severity attached to an audit event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Auditor records security-relevant events: who did what and how it ended.
// Implementations must never receive secrets; actor is a username or a
// connection id, action a command name, outcome a short verdict.
type Auditor interface {
	LogEvent(ctx context.Context, level Level, actor, action, outcome string)
}

// LoggerAuditor writes audit events through a Logger as ordinary records
// tagged with event=audit, leaving persistence to the log sink.
type LoggerAuditor struct {
	log Logger
}

func NewLoggerAuditor(l Logger) *LoggerAuditor {
	return &LoggerAuditor{log: l.With("event", "audit")}
}

func (a *LoggerAuditor) LogEvent(ctx context.Context, level Level, actor, action, outcome string) {
	args := []any{"actor", actor, "action", action, "outcome", outcome}
	switch level {
	case LevelError:
		a.log.Error(ctx, "audit", args...)
	case LevelWarn:
		a.log.Warn(ctx, "audit", args...)
	default:
		a.log.Info(ctx, "audit", args...)
	}
}

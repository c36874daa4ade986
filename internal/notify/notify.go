// Package notify delivers user-visible failure notices.
package notify

import (
	"context"
	"log/slog"
)

// Notifier shows a short message to the user.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Log writes notices to a logger. It is the default when no richer channel
// is configured.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log notifier.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Notify logs the message at warn level.
func (l *Log) Notify(ctx context.Context, message string) {
	l.logger.WarnContext(ctx, "user notice", "message", message)
}

// Multi fans a notice out to every notifier in order.
type Multi []Notifier

// Notify forwards message to each notifier.
func (m Multi) Notify(ctx context.Context, message string) {
	for _, n := range m {
		n.Notify(ctx, message)
	}
}

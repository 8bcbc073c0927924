package eventlogger

import (
	"context"
	"log/slog"
)

// slogEventLogger writes events to a structured logger. Nothing is kept.
type slogEventLogger struct {
	logger *slog.Logger
}

func NewSlogEventLogger(logger *slog.Logger) *slogEventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogEventLogger{logger: logger}
}

func (el *slogEventLogger) Save(ctx context.Context, e Event) error {
	attrs := []any{"id", e.ID.String(), "event_type", e.Type, "event_data", e.Data}
	for k, v := range e.Metadata {
		attrs = append(attrs, k, v)
	}
	el.logger.InfoContext(ctx, "event", attrs...)
	return nil
}

func (el *slogEventLogger) GetByType(context.Context, string) ([]Event, error) {
	return nil, ErrNotQueryable
}

package audit

import (
	"context"
	"log/slog"
)

// SlogSink writes audit events to the structured log. Used when no Kafka
// brokers are configured so the trail still lands somewhere durable.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Append(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit event",
		slog.String("action", event.Action),
		slog.String("user_id", event.UserID),
		slog.String("provider", event.Provider),
		slog.String("email", event.Email),
		slog.String("detail", event.Detail),
		slog.String("request_id", event.RequestID),
		slog.String("client_ip", event.ClientIP),
		slog.String("device_name", event.DeviceName),
		slog.Time("at", event.Timestamp),
	)
	return nil
}

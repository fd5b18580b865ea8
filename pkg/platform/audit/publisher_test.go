package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dojotrack/pkg/requestcontext"
)

func TestPublisherDeliversEvents(t *testing.T) {
	sink := NewMemorySink()
	pub := NewPublisher(sink, slog.New(slog.NewTextHandler(io.Discard, nil)))

	pub.Emit(context.Background(), Event{Action: ActionLogin, UserID: "u-1"})
	pub.Emit(context.Background(), Event{Action: ActionIdentityLinked, UserID: "u-1", Provider: "google"})
	pub.Close()

	events := sink.Events()
	require.Len(t, events, 2)
	require.Equal(t, ActionLogin, events[0].Action)
	require.Equal(t, "google", events[1].Provider)
	require.False(t, events[0].Timestamp.IsZero())
}

func TestPublisherStampsRequestMetadata(t *testing.T) {
	sink := NewMemorySink()
	pub := NewPublisher(sink, slog.New(slog.NewTextHandler(io.Discard, nil)))

	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.9", "ua", "Chrome 126, Linux")

	pub.Emit(ctx, Event{Action: ActionAccountsMerged})
	pub.Close()

	events := sink.Events()
	require.Len(t, events, 1)
	require.Equal(t, at, events[0].Timestamp)
	require.Equal(t, "req-42", events[0].RequestID)
	require.Equal(t, "203.0.113.9", events[0].ClientIP)
	require.Equal(t, "Chrome 126, Linux", events[0].DeviceName)
}

func TestNilPublisherIsSafe(t *testing.T) {
	var pub *Publisher
	pub.Emit(context.Background(), Event{Action: ActionLogin})
	pub.Close()
}

package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dojotrack/pkg/requestcontext"
)

// Sink receives audit events for durable storage or shipping.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher buffers events on a channel and drains them from a background
// worker. Emit never blocks the request path: when the buffer is full the
// event is dropped and counted in the log instead.
type Publisher struct {
	sink      Sink
	inbox     chan Event
	logger    *slog.Logger
	done      chan struct{}
	closeOnce sync.Once
}

const defaultBuffer = 256

func NewPublisher(sink Sink, logger *slog.Logger) *Publisher {
	p := &Publisher{
		sink:   sink,
		inbox:  make(chan Event, defaultBuffer),
		logger: logger,
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Emit enqueues an event, stamping it with the request-scoped metadata from
// the context. Safe to call with a nil Publisher.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.DeviceName == "" {
		event.DeviceName = requestcontext.DeviceName(ctx)
	}

	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event", slog.String("action", event.Action))
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.sink.Append(ctx, event); err != nil {
			p.logger.Error("audit append failed",
				slog.String("action", event.Action),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
}

// Close drains the buffer and stops the worker. Safe to call more than once.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() {
		close(p.inbox)
	})
	<-p.done
}

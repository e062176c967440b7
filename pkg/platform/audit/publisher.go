package audit

import (
	"context"
	"log/slog"
	"time"
)

// Store is an append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher accepts events from domain logic and hands them to the worker's
// inbox. Emission never blocks settlement: when the inbox is full the event
// is dropped and counted in the log instead.
type Publisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewPublisher(inbox chan<- Event, logger *slog.Logger) *Publisher {
	return &Publisher{inbox: inbox, logger: logger}
}

// Emit enqueues an event, filling in timestamp and category defaults.
func (p *Publisher) Emit(ctx context.Context, kind AuditEvent, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Action = string(kind)
	event.Category = kind.Category()

	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"action", event.Action,
			"subject", event.Subject,
		)
	}
}

package audit

import (
	"context"
	"time"

	id "caretrail/pkg/domain"
)

// Publisher captures structured audit events. It is append-only and uses the
// store for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = AuditEvent(event.Action).Category()
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, visitID id.VisitID) ([]Event, error) {
	return p.store.ListByVisit(ctx, visitID)
}

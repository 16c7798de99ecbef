package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "tandapool/pkg/domain"
	"tandapool/pkg/requestcontext"
)

// Store is the append-only persistence behind the publisher.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByGroup(ctx context.Context, groupID id.GroupID) ([]Event, error)
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, groupID id.GroupID) ([]Event, error) {
	return p.store.ListByGroup(ctx, groupID)
}

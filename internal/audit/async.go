package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	dErrors "tandapool/pkg/domain-errors"
	"tandapool/pkg/requestcontext"
)

// AsyncPublisher hands events to a Worker through a buffered channel so
// emitters never wait on the sink. A full buffer drops the event with an
// error rather than stalling a money-moving request.
type AsyncPublisher struct {
	inbox chan Event
}

// NewAsyncPublisher returns the publisher and the inbox to hand a Worker.
func NewAsyncPublisher(buffer int) (*AsyncPublisher, <-chan Event) {
	inbox := make(chan Event, buffer)
	return &AsyncPublisher{inbox: inbox}, inbox
}

func (p *AsyncPublisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		return dErrors.New(dErrors.CodeInternal, "audit buffer is full")
	}
}

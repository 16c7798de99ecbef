// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them. Keeping
// this package free of net/http lets domain code depend only on context.
//
// The request time accessor doubles as the system clock: every subperiod
// guard reads requestcontext.Now(ctx), so tests pin time with WithTime and
// production requests observe one consistent instant per call.
package requestcontext

import (
	"context"
	"time"

	id "tandapool/pkg/domain"
)

type (
	actorKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyActor       = actorKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Actor retrieves the authenticated caller's ledger account from the
// context. Returns the zero value when unauthenticated.
func Actor(ctx context.Context) id.AccountID {
	if actor, ok := ctx.Value(ContextKeyActor).(id.AccountID); ok {
		return actor
	}
	return ""
}

// WithActor injects the caller's account into the context.
func WithActor(ctx context.Context, actor id.AccountID) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// RequestID retrieves the correlation id from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a correlation id into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from the context. Falls back to
// time.Now() for non-HTTP contexts such as workers and CLI commands.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins a specific instant in the context. Used by the request-time
// middleware and by tests that drive the subperiod clock.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

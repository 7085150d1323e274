// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets values, services read them. Keeping this package free of
// net/http lets domain services import only what they need.
//
// Usage in services (read values):
//
//	actor := requestcontext.Actor(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithActor(ctx, name)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (pin the clock):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "attest/pkg/domain"
)

type (
	actorKey       struct{}
	workItemKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// WithActor records the authenticated actor name making the request.
func WithActor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, actorKey{}, name)
}

// Actor returns the authenticated actor name, or "" when unauthenticated.
func Actor(ctx context.Context) string {
	name, _ := ctx.Value(actorKey{}).(string)
	return name
}

// WithWorkItem records the work item the request is acting from. Requests
// coming straight from the certification carry no work item.
func WithWorkItem(ctx context.Context, workItem id.WorkItemID) context.Context {
	return context.WithValue(ctx, workItemKey{}, workItem)
}

// WorkItem returns the acting work item id, zero when the request comes from
// the certification owner directly.
func WorkItem(ctx context.Context) id.WorkItemID {
	wi, _ := ctx.Value(workItemKey{}).(id.WorkItemID)
	return wi
}

// WithRequestID records the correlation id for the request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the correlation id, or "" when unset.
func RequestID(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}

// WithTime pins the request clock. Middleware stamps the arrival time so a
// request observes one consistent "now"; tests use this to make decisions
// deterministic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the request clock, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

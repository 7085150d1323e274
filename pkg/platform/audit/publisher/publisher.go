// Package publisher emits audit events to a backing store, either inline or
// through a bounded async buffer.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	id "attest/pkg/domain"
	audit "attest/pkg/platform/audit"
)

// Publisher fans audit events into a Store. In sync mode Emit appends
// directly; with an async buffer Emit enqueues and a background goroutine
// drains. A full buffer drops the event rather than blocking the decision
// path.
type Publisher struct {
	store     audit.Store
	forwarder Forwarder
	inbox     chan audit.Event
	done      chan struct{}
	logger    *slog.Logger

	closeOnce sync.Once
}

// Forwarder ships events to an external stream after they are stored.
// Forwarding is best effort; failures are logged, never surfaced.
type Forwarder interface {
	Forward(ctx context.Context, event audit.Event) error
}

type Option func(*Publisher)

// WithForwarder ships every stored event to the given forwarder as well.
func WithForwarder(f Forwarder) Option {
	return func(p *Publisher) {
		p.forwarder = f
	}
}

// WithAsyncBuffer enables async emission with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		done:   make(chan struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

// Emit records one event. Emitting never fails the surrounding operation: in
// async mode overflow is dropped with a log line, and callers are expected to
// treat a sync append error as non-fatal too.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p.inbox == nil {
		if err := p.store.Append(ctx, event); err != nil {
			return err
		}
		p.forward(ctx, event)
		return nil
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event",
			"action", event.Action,
			"certification", event.Certification.String(),
		)
	}
	return nil
}

// List returns the recorded events for one certification.
func (p *Publisher) List(ctx context.Context, certID id.CertificationID) ([]audit.Event, error) {
	return p.store.ListByCertification(ctx, certID)
}

// Close drains any buffered events and stops the background goroutine. Safe
// to call more than once.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox == nil {
			close(p.done)
			return
		}
		close(p.inbox)
		<-p.done
	})
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("audit append failed", "error", err, "action", event.Action)
			continue
		}
		p.forward(context.Background(), event)
	}
}

func (p *Publisher) forward(ctx context.Context, event audit.Event) {
	if p.forwarder == nil {
		return
	}
	if err := p.forwarder.Forward(ctx, event); err != nil {
		p.logger.Warn("audit forward failed", "error", err, "action", event.Action)
	}
}

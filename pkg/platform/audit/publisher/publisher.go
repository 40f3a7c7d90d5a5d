// Package publisher is the single AuditSink the domain services emit into.
//
// Compliance events are written synchronously and fail closed: if the write
// fails, Emit returns the error and the caller must fail its operation.
// Other categories may go through a bounded async buffer drained by a
// worker, trading durability for latency.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	audit "safeharbour/pkg/platform/audit"
	"safeharbour/pkg/platform/audit/worker"
	"safeharbour/pkg/requestcontext"
)

type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	asyncSize int
	inbox     chan audit.Event
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer routes non-compliance events through a buffer of the given size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.asyncSize = size
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.asyncSize > 0 {
		p.inbox = make(chan audit.Event, p.asyncSize)
		p.done = make(chan struct{})
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		w := worker.NewWorker(store, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(ctx)
		}()
	}
	return p
}

// Emit records an event. Timestamp and RequestID are filled from ctx when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil || event.Category == audit.CategoryCompliance {
		if err := p.store.Append(ctx, event); err != nil {
			p.logger.ErrorContext(ctx, "audit persistence failed",
				"action", event.Action,
				"subject_id", event.SubjectID,
				"category", event.Category,
				"error", err,
			)
			return err
		}
		return nil
	}

	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, writing inline", "action", event.Action)
		return p.store.Append(ctx, event)
	}
	return nil
}

func (p *Publisher) List(ctx context.Context, subjectID string) ([]audit.Event, error) {
	return p.store.ListBySubject(ctx, subjectID)
}

// Close drains buffered events and stops the async worker.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		if p.inbox == nil {
			return
		}
		close(p.inbox)
		<-p.done
		p.cancel()
	})
	return nil
}

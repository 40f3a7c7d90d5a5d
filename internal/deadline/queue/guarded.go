package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"safeharbour/internal/deadline/models"
	"safeharbour/pkg/platform/circuit"
	"safeharbour/pkg/platform/sentinel"
)

// Backend is the full queue surface implemented by Memory and Redis.
type Backend interface {
	Enqueue(ctx context.Context, job models.Job) error
	Cancel(ctx context.Context, key string) error
	Claim(ctx context.Context, now time.Time, limit int) ([]models.Job, error)
	Ack(ctx context.Context, key string) error
	Fail(ctx context.Context, job models.Job, cause error, at time.Time) error
	Failed(ctx context.Context) ([]FailedJob, error)
}

// Guarded fails writes fast while the backend is down. A case submitted
// during an outage then reports its alerts as unscheduled immediately
// instead of waiting on a dial timeout per alert. Claims are not guarded;
// the worker's poll interval already paces them.
type Guarded struct {
	Backend
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuarded(backend Backend, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{Backend: backend, breaker: breaker, logger: logger}
}

func (g *Guarded) Enqueue(ctx context.Context, job models.Job) error {
	return g.call(ctx, "enqueue", func() error { return g.Backend.Enqueue(ctx, job) })
}

func (g *Guarded) Cancel(ctx context.Context, key string) error {
	return g.call(ctx, "cancel", func() error { return g.Backend.Cancel(ctx, key) })
}

func (g *Guarded) call(ctx context.Context, op string, fn func() error) error {
	if !g.breaker.Allow() {
		return fmt.Errorf("%s: alert queue %w", op, sentinel.ErrUnavailable)
	}
	if err := fn(); err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.ErrorContext(ctx, "alert queue circuit opened", "breaker", g.breaker.Name(), "error", err)
		}
		return err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "alert queue circuit closed", "breaker", g.breaker.Name())
	}
	return nil
}

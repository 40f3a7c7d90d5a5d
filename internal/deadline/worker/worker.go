// Package worker runs the alert delivery pool: one poller claims due jobs
// from the queue and a fixed set of goroutines delivers them.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"safeharbour/internal/deadline/metrics"
	"safeharbour/internal/deadline/models"
	dErrors "safeharbour/pkg/domain-errors"
	audit "safeharbour/pkg/platform/audit"
	"safeharbour/pkg/requestcontext"
)

type Queue interface {
	Claim(ctx context.Context, now time.Time, limit int) ([]models.Job, error)
	Ack(ctx context.Context, key string) error
	Fail(ctx context.Context, job models.Job, cause error, at time.Time) error
}

type Handler interface {
	Deliver(ctx context.Context, job models.Job) (models.DeliveryOutcome, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Worker struct {
	queue          Queue
	handler        Handler
	concurrency    int
	pollInterval   time.Duration
	maxAttempts    int
	batchSize      int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	now            func() time.Time
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
}

type Option func(*Worker)

func WithConcurrency(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithMaxAttempts bounds deliveries per job, the first attempt included.
func WithMaxAttempts(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithBackoff(initial, max time.Duration) Option {
	return func(w *Worker) {
		w.initialBackoff = initial
		w.maxBackoff = max
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		w.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(w *Worker) {
		w.auditPublisher = publisher
	}
}

func New(queue Queue, handler Handler, opts ...Option) (*Worker, error) {
	if queue == nil || handler == nil {
		return nil, errors.New("queue and handler are required")
	}
	w := &Worker{
		queue:          queue,
		handler:        handler,
		concurrency:    4,
		pollInterval:   time.Second,
		maxAttempts:    5,
		batchSize:      16,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     10 * time.Second,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run blocks until ctx is cancelled. Jobs claimed but not finished at
// shutdown stay leased and are reclaimed after the lease expires.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan models.Job)

	g.Go(func() error {
		defer close(jobs)
		return w.poll(ctx, jobs)
	})
	for range w.concurrency {
		g.Go(func() error {
			for job := range jobs {
				w.process(ctx, job)
			}
			return nil
		})
	}

	w.logger.InfoContext(ctx, "alert worker started", "concurrency", w.concurrency)
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	w.logger.Info("alert worker stopped")
	return err
}

func (w *Worker) poll(ctx context.Context, jobs chan<- models.Job) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		claimed, err := w.queue.Claim(ctx, w.now(), w.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.WarnContext(ctx, "failed to claim alert jobs", "error", err)
		}
		w.metrics.AddClaimed(len(claimed))
		for _, job := range claimed {
			select {
			case jobs <- job:
			case <-ctx.Done():
				return nil
			}
		}
		if len(claimed) == w.batchSize {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Worker) process(ctx context.Context, job models.Job) {
	attempts := 0
	op := func() error {
		attempts++
		jobCtx := requestcontext.WithTime(ctx, w.now())
		outcome, err := w.handler.Deliver(jobCtx, job)
		if err == nil {
			w.logger.DebugContext(ctx, "alert job handled", "job_key", job.Key, "outcome", outcome)
			return nil
		}
		if !dErrors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		if attempts < w.maxAttempts {
			w.metrics.IncrementRetry()
			w.logger.WarnContext(ctx, "alert job failed, retrying",
				"job_key", job.Key,
				"attempt", attempts,
				"error", err,
			)
		}
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(w.newBackOff(), uint64(w.maxAttempts-1)), ctx))
	if err == nil {
		if ackErr := w.queue.Ack(ctx, job.Key); ackErr != nil {
			w.logger.WarnContext(ctx, "failed to ack alert job", "job_key", job.Key, "error", ackErr)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	w.fail(ctx, job, attempts, err)
}

func (w *Worker) fail(ctx context.Context, job models.Job, attempts int, cause error) {
	job.Attempt = attempts
	w.metrics.IncrementJobFailure(string(job.Kind))
	w.logger.ErrorContext(ctx, "alert job failed permanently",
		"job_key", job.Key,
		"attempts", attempts,
		"error", cause,
	)
	if err := w.queue.Fail(ctx, job, cause, w.now()); err != nil {
		w.logger.ErrorContext(ctx, "failed to record failed alert job", "job_key", job.Key, "error", err)
	}
	if w.auditPublisher != nil {
		ev := audit.New(audit.EventAlertJobFailed, job.SubjectID.String(), "")
		ev.Reason = cause.Error()
		ev.Metadata = map[string]string{"kind": string(job.Kind)}
		if err := w.auditPublisher.Emit(ctx, ev); err != nil {
			w.logger.WarnContext(ctx, "failed to audit alert job failure", "job_key", job.Key, "error", err)
		}
	}
}

func (w *Worker) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.initialBackoff
	b.MaxInterval = w.maxBackoff
	b.MaxElapsedTime = 0
	return b
}

package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"safeharbour/internal/deadline/models"
	"safeharbour/internal/deadline/queue"
	id "safeharbour/pkg/domain"
	dErrors "safeharbour/pkg/domain-errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedHandler returns errs in order for each job key, then succeeds.
type scriptedHandler struct {
	mu       sync.Mutex
	errs     map[string][]error
	attempts map[string]int
	done     chan string
}

func newScriptedHandler() *scriptedHandler {
	return &scriptedHandler{
		errs:     make(map[string][]error),
		attempts: make(map[string]int),
		done:     make(chan string, 16),
	}
}

func (h *scriptedHandler) Deliver(_ context.Context, job models.Job) (models.DeliveryOutcome, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts[job.Key]++
	if errs := h.errs[job.Key]; len(errs) > 0 {
		err := errs[0]
		h.errs[job.Key] = errs[1:]
		if len(h.errs[job.Key]) == 0 && !dErrors.IsRetryable(err) {
			h.done <- job.Key
		}
		return "", err
	}
	h.done <- job.Key
	return models.OutcomeDelivered, nil
}

func (h *scriptedHandler) attemptsFor(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts[key]
}

type WorkerSuite struct {
	suite.Suite
	queue   *queue.Memory
	handler *scriptedHandler
	now     time.Time
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.queue = queue.NewMemory()
	s.handler = newScriptedHandler()
	s.now = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
}

func (s *WorkerSuite) enqueue(kind models.AlertKind) models.Job {
	subject := id.NewCaseID()
	job := models.Job{Key: models.JobKey(subject, kind), SubjectID: subject, Kind: kind, FireAt: s.now.Add(-time.Minute)}
	s.Require().NoError(s.queue.Enqueue(context.Background(), job))
	return job
}

// run starts the worker and returns a stop func that waits for Run to exit.
func (s *WorkerSuite) run(opts ...Option) func() {
	opts = append([]Option{
		WithConcurrency(3),
		WithPollInterval(5 * time.Millisecond),
		WithBackoff(time.Millisecond, 2*time.Millisecond),
		WithMaxAttempts(3),
		WithClock(func() time.Time { return s.now }),
	}, opts...)
	w, err := New(s.queue, s.handler, opts...)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	return func() {
		cancel()
		s.NoError(<-errc)
	}
}

func (s *WorkerSuite) waitFor(keys ...string) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	timeout := time.After(2 * time.Second)
	for len(want) > 0 {
		select {
		case k := <-s.handler.done:
			delete(want, k)
		case <-timeout:
			s.FailNow("timed out waiting for jobs", "%v", want)
		}
	}
}

func (s *WorkerSuite) TestNew() {
	_, err := New(nil, s.handler)
	s.Require().Error(err)
	s.Contains(err.Error(), "queue and handler are required")
}

func (s *WorkerSuite) TestDeliversDueJobs() {
	amber := s.enqueue(models.AlertAmber)
	red := s.enqueue(models.AlertRed)

	stop := s.run()
	s.waitFor(amber.Key, red.Key)
	stop()

	s.Eventually(func() bool { return s.queue.Pending() == 0 }, time.Second, 5*time.Millisecond)
	failed, err := s.queue.Failed(context.Background())
	s.Require().NoError(err)
	s.Empty(failed)
}

func (s *WorkerSuite) TestRetriesTransientErrors() {
	job := s.enqueue(models.AlertAmber)
	transient := dErrors.New(dErrors.CodeTransient, "case store unavailable")
	s.handler.errs[job.Key] = []error{transient, transient}

	stop := s.run()
	s.waitFor(job.Key)
	stop()

	s.Equal(3, s.handler.attemptsFor(job.Key))
	failed, err := s.queue.Failed(context.Background())
	s.Require().NoError(err)
	s.Empty(failed)
}

func (s *WorkerSuite) TestPermanentErrorIsNotRetried() {
	job := s.enqueue(models.AlertRed)
	s.handler.errs[job.Key] = []error{dErrors.New(dErrors.CodeInternal, "corrupt alert")}

	stop := s.run()
	s.waitFor(job.Key)
	s.Eventually(func() bool {
		failed, _ := s.queue.Failed(context.Background())
		return len(failed) == 1
	}, time.Second, 5*time.Millisecond)
	stop()

	s.Equal(1, s.handler.attemptsFor(job.Key))
}

func (s *WorkerSuite) TestExhaustedRetriesAreReportedFailed() {
	job := s.enqueue(models.AlertAmber)
	transient := dErrors.New(dErrors.CodeTransient, "case store unavailable")
	s.handler.errs[job.Key] = []error{transient, transient, transient, transient}

	stop := s.run()
	s.Eventually(func() bool {
		failed, _ := s.queue.Failed(context.Background())
		return len(failed) == 1
	}, 2*time.Second, 5*time.Millisecond)
	stop()

	failed, err := s.queue.Failed(context.Background())
	s.Require().NoError(err)
	s.Equal(job.Key, failed[0].Job.Key)
	s.Equal(3, failed[0].Job.Attempt)
	s.Equal(3, s.handler.attemptsFor(job.Key))
	s.Equal(0, s.queue.Pending())
}

func (s *WorkerSuite) TestStopsWithoutLeaking() {
	stop := s.run()
	time.Sleep(20 * time.Millisecond)
	stop()
}

type failingQueue struct{ *queue.Memory }

func (failingQueue) Claim(context.Context, time.Time, int) ([]models.Job, error) {
	return nil, errors.New("redis down")
}

func (s *WorkerSuite) TestClaimErrorsDoNotStopTheWorker() {
	w, err := New(failingQueue{queue.NewMemory()}, s.handler, WithPollInterval(time.Millisecond))
	s.Require().NoError(err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s.NoError(w.Run(ctx))
}

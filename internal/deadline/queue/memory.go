// Package queue holds delayed alert jobs. Jobs are keyed by
// models.JobKey so enqueueing is idempotent and cancellation targets one job.
// A claimed job is leased; it returns to the due set if not acked or failed
// before the lease expires.
package queue

import (
	"context"
	"slices"
	"sync"
	"time"

	"safeharbour/internal/deadline/models"
)

// DefaultLease is how long a claimed job stays invisible to other workers.
const DefaultLease = 5 * time.Minute

// FailedJob is a job that exhausted its retries.
type FailedJob struct {
	Job      models.Job `json:"job"`
	Error    string     `json:"error"`
	FailedAt time.Time  `json:"failed_at"`
}

type entry struct {
	job models.Job
	at  time.Time
}

// Memory is the in-process queue used in development and tests.
type Memory struct {
	mu         sync.Mutex
	due        map[string]entry
	processing map[string]entry
	failed     []FailedJob
	lease      time.Duration
}

func NewMemory() *Memory {
	return &Memory{
		due:        make(map[string]entry),
		processing: make(map[string]entry),
		lease:      DefaultLease,
	}
}

func (q *Memory) Enqueue(_ context.Context, job models.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.due[job.Key] = entry{job: job, at: job.FireAt}
	return nil
}

func (q *Memory) Cancel(_ context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.due, key)
	delete(q.processing, key)
	return nil
}

// Claim leases up to limit jobs due at now, earliest first.
func (q *Memory) Claim(_ context.Context, now time.Time, limit int) ([]models.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for key, e := range q.processing {
		if !e.at.After(now) {
			delete(q.processing, key)
			q.due[key] = entry{job: e.job, at: now}
		}
	}
	var ready []entry
	for _, e := range q.due {
		if !e.at.After(now) {
			ready = append(ready, e)
		}
	}
	slices.SortFunc(ready, func(a, b entry) int { return a.at.Compare(b.at) })
	if len(ready) > limit {
		ready = ready[:limit]
	}
	jobs := make([]models.Job, 0, len(ready))
	for _, e := range ready {
		delete(q.due, e.job.Key)
		q.processing[e.job.Key] = entry{job: e.job, at: now.Add(q.lease)}
		jobs = append(jobs, e.job)
	}
	return jobs, nil
}

func (q *Memory) Ack(_ context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.processing, key)
	return nil
}

func (q *Memory) Fail(_ context.Context, job models.Job, cause error, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.processing, job.Key)
	q.failed = append(q.failed, FailedJob{Job: job, Error: cause.Error(), FailedAt: at})
	return nil
}

func (q *Memory) Failed(_ context.Context) ([]FailedJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.failed), nil
}

// Pending reports how many jobs are due or leased.
func (q *Memory) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.due) + len(q.processing)
}

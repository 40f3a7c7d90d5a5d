package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"safeharbour/internal/deadline/models"
)

// claimScript returns expired leases to the due set, then moves up to
// ARGV[2] due jobs into the processing set with a lease, returning their
// payloads. KEYS: due, processing, payloads. ARGV: now_ms, limit, lease_ms.
var claimScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local expired = redis.call("ZRANGEBYSCORE", KEYS[2], "-inf", now)
for _, key in ipairs(expired) do
  redis.call("ZREM", KEYS[2], key)
  redis.call("ZADD", KEYS[1], now, key)
end
local keys = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", now, "LIMIT", 0, tonumber(ARGV[2]))
local out = {}
for _, key in ipairs(keys) do
  redis.call("ZREM", KEYS[1], key)
  local payload = redis.call("HGET", KEYS[3], key)
  if payload then
    redis.call("ZADD", KEYS[2], now + tonumber(ARGV[3]), key)
    table.insert(out, payload)
  end
end
return out
`)

// Redis is the durable queue: a sorted set of due job keys scored by fire
// time, a hash of payloads, a sorted set of leased keys and a failed list.
type Redis struct {
	client     redis.UniversalClient
	due        string
	processing string
	payloads   string
	failed     string
	lease      time.Duration
}

type RedisOption func(*Redis)

func WithLease(d time.Duration) RedisOption {
	return func(q *Redis) {
		if d > 0 {
			q.lease = d
		}
	}
}

// NewRedis creates a queue whose keys share prefix.
func NewRedis(client redis.UniversalClient, prefix string, opts ...RedisOption) *Redis {
	q := &Redis{
		client:     client,
		due:        prefix + ":due",
		processing: prefix + ":processing",
		payloads:   prefix + ":jobs",
		failed:     prefix + ":failed",
		lease:      DefaultLease,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Redis) Enqueue(ctx context.Context, job models.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	_, err = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, q.payloads, job.Key, payload)
		p.ZAdd(ctx, q.due, redis.Z{Score: float64(job.FireAt.UnixMilli()), Member: job.Key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", job.Key, err)
	}
	return nil
}

func (q *Redis) Cancel(ctx context.Context, key string) error {
	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, q.due, key)
		p.ZRem(ctx, q.processing, key)
		p.HDel(ctx, q.payloads, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel %s: %w", key, err)
	}
	return nil
}

func (q *Redis) Claim(ctx context.Context, now time.Time, limit int) ([]models.Job, error) {
	res, err := claimScript.Run(ctx, q.client,
		[]string{q.due, q.processing, q.payloads},
		now.UnixMilli(), limit, q.lease.Milliseconds(),
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}
	jobs := make([]models.Job, 0, len(res))
	for _, payload := range res {
		var job models.Job
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (q *Redis) Ack(ctx context.Context, key string) error {
	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, q.processing, key)
		p.HDel(ctx, q.payloads, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ack %s: %w", key, err)
	}
	return nil
}

func (q *Redis) Fail(ctx context.Context, job models.Job, cause error, at time.Time) error {
	payload, err := json.Marshal(FailedJob{Job: job, Error: cause.Error(), FailedAt: at})
	if err != nil {
		return fmt.Errorf("encode failed job: %w", err)
	}
	_, err = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, q.failed, payload)
		p.ZRem(ctx, q.processing, job.Key)
		p.HDel(ctx, q.payloads, job.Key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("fail %s: %w", job.Key, err)
	}
	return nil
}

func (q *Redis) Failed(ctx context.Context) ([]FailedJob, error) {
	res, err := q.client.LRange(ctx, q.failed, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list failed jobs: %w", err)
	}
	out := make([]FailedJob, 0, len(res))
	for _, payload := range res {
		var f FailedJob
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			return nil, fmt.Errorf("decode failed job: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}

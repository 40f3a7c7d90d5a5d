package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	approvalmetrics "safeharbour/internal/approval/metrics"
	approvalservice "safeharbour/internal/approval/service"
	approvalstore "safeharbour/internal/approval/store"
	casesservice "safeharbour/internal/cases/service"
	casestore "safeharbour/internal/cases/store"
	committeeservice "safeharbour/internal/committee/service"
	committeestore "safeharbour/internal/committee/store"
	deadlinemetrics "safeharbour/internal/deadline/metrics"
	"safeharbour/internal/deadline/models"
	"safeharbour/internal/deadline/queue"
	deadlineservice "safeharbour/internal/deadline/service"
	deadlinestore "safeharbour/internal/deadline/store"
	"safeharbour/internal/deadline/worker"
	"safeharbour/internal/identity/blindindex"
	"safeharbour/internal/identity/codec"
	identityservice "safeharbour/internal/identity/service"
	identitystore "safeharbour/internal/identity/store"
	jwttoken "safeharbour/internal/jwt_token"
	"safeharbour/internal/platform/config"
	"safeharbour/internal/platform/metrics"
	"safeharbour/internal/platform/postgres"
	platformredis "safeharbour/internal/platform/redis"
	"safeharbour/internal/platform/secrets"
	revealservice "safeharbour/internal/reveal/service"
	revealstore "safeharbour/internal/reveal/store"
	httptransport "safeharbour/internal/transport/http"
	audit "safeharbour/pkg/platform/audit"
	"safeharbour/pkg/platform/audit/outbox"
	"safeharbour/pkg/platform/audit/publisher"
	auditmemory "safeharbour/pkg/platform/audit/store/memory"
	auditpostgres "safeharbour/pkg/platform/audit/store/postgres"
	"safeharbour/pkg/platform/circuit"
	txcontext "safeharbour/pkg/platform/tx"
)

const (
	tokenIssuer   = "safeharbour"
	tokenAudience = "safeharbour-api"
	auditBuffer   = 256

	queueBreakerThreshold = 5
)

type app struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	redis    *platformredis.Client
	registry *prometheus.Registry

	codec     *codec.Codec
	tokens    *jwttoken.JWTService
	audit     *publisher.Publisher
	queue     queue.Backend
	metrics   *deadlinemetrics.Metrics
	identity  *identityservice.Service
	committee *committeeservice.Service
	cases     *casesservice.Service
	approvals *approvalservice.Service
	reveals   *revealservice.Service
	scheduler *deadlineservice.Scheduler
}

// newCodec resolves the codec key alone, for commands that need nothing else.
func newCodec(cfg config.Config) (*codec.Codec, error) {
	key, err := secrets.Resolve("codec key", cfg.Secrets.CodecKey, cfg.Secrets.Master, secrets.PurposeCodec)
	if err != nil {
		return nil, err
	}
	return codec.New(key)
}

// newApp wires every service. Postgres and Redis are used when configured;
// otherwise the in-memory adapters back a single process.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: metrics.NewRegistry()}

	var err error
	if a.codec, err = newCodec(cfg); err != nil {
		return nil, err
	}
	indexKey, err := secrets.Resolve("blind index key", cfg.Secrets.BlindIndexKey, cfg.Secrets.Master, secrets.PurposeBlindIndex)
	if err != nil {
		return nil, err
	}
	index, err := blindindex.New(indexKey)
	if err != nil {
		return nil, err
	}
	a.tokens = jwttoken.NewJWTService(cfg.Secrets.JWTSigningKey, tokenIssuer, tokenAudience)

	var (
		identities identityservice.Store
		members    committeeservice.Store
		cases      casesservice.Store
		approvals  approvalservice.Store
		reveals    revealservice.Store
		deadlines  deadlineservice.Store
		auditStore audit.Store
		tx         txcontext.Runner
	)
	if cfg.DevMode() {
		logger.WarnContext(ctx, "no database configured, using in-memory stores")
		identities = identitystore.NewInMemory()
		members = committeestore.NewInMemory()
		cases = casestore.NewInMemory()
		approvals = approvalstore.NewInMemory()
		reveals = revealstore.NewInMemory()
		deadlines = deadlinestore.NewInMemory()
		auditStore = auditmemory.NewInMemoryStore()
		tx = txcontext.Passthrough{}
	} else {
		if a.db, err = postgres.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns); err != nil {
			return nil, err
		}
		identities = identitystore.NewPostgres(a.db)
		members = committeestore.NewPostgres(a.db)
		cases = casestore.NewPostgres(a.db)
		approvals = approvalstore.NewPostgres(a.db)
		reveals = revealstore.NewPostgres(a.db)
		deadlines = deadlinestore.NewPostgres(a.db)
		auditStore = auditpostgres.New(a.db)
		tx = txcontext.NewSQLRunner(a.db)
	}

	if a.redis, err = platformredis.New(ctx, cfg.Redis); err != nil {
		a.Close()
		return nil, err
	}
	if a.redis != nil {
		breaker := circuit.New("alert-queue", circuit.WithFailureThreshold(queueBreakerThreshold))
		a.queue = queue.NewGuarded(queue.NewRedis(a.redis.Client, cfg.Redis.QueueKey), breaker, logger)
	} else {
		a.queue = queue.NewMemory()
	}

	a.audit = publisher.NewPublisher(auditStore, publisher.WithAsyncBuffer(auditBuffer), publisher.WithLogger(logger))
	a.metrics = deadlinemetrics.New(a.registry)

	if a.identity, err = identityservice.New(identities, a.codec, index,
		identityservice.WithLogger(logger),
		identityservice.WithAuditPublisher(a.audit),
	); err != nil {
		a.Close()
		return nil, err
	}
	if a.committee, err = committeeservice.New(members, a.identity, committeeservice.WithLogger(logger)); err != nil {
		a.Close()
		return nil, err
	}

	policy := models.PolicyFromDays(cfg.Deadline.InitialWindowDays, cfg.Deadline.StatutoryLimitDays,
		cfg.Deadline.AmberOffsetDays, cfg.Deadline.RedOffsetDays, cfg.Deadline.MinExtensionReasonRune)
	if a.scheduler, err = deadlineservice.New(deadlines, a.queue, casesservice.NewStatusReader(cases), a.committee,
		deadlineservice.WithPolicy(policy),
		deadlineservice.WithMetrics(a.metrics),
		deadlineservice.WithLogger(logger),
		deadlineservice.WithAuditPublisher(a.audit),
	); err != nil {
		a.Close()
		return nil, err
	}

	if a.cases, err = casesservice.New(cases, a.identity, a.committee, a.scheduler,
		casesservice.WithLogger(logger),
		casesservice.WithAuditPublisher(a.audit),
		casesservice.WithTxRunner(tx),
	); err != nil {
		a.Close()
		return nil, err
	}

	if a.approvals, err = approvalservice.New(approvals, approvalservice.Executors{
		CloseCase:     approvalservice.Action{Run: a.cases.Resolve, After: a.cases.CancelAlerts},
		InterimRelief: approvalservice.ExecutorFunc(a.cases.GrantInterimRelief),
	},
		approvalservice.WithLogger(logger),
		approvalservice.WithAuditPublisher(a.audit),
		approvalservice.WithTxRunner(tx),
		approvalservice.WithMetrics(approvalmetrics.New(a.registry)),
	); err != nil {
		a.Close()
		return nil, err
	}

	if a.reveals, err = revealservice.New(reveals, a.cases, a.identity,
		revealservice.WithLogger(logger),
		revealservice.WithAuditPublisher(a.audit),
		revealservice.WithMinReasonLength(cfg.Reveal.MinReasonLength),
	); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) router() http.Handler {
	return httptransport.NewRouter(httptransport.Config{
		Logger:         a.logger,
		Tokens:         a.tokens,
		Metrics:        metrics.New(a.registry),
		MetricsHandler: metrics.Handler(a.registry),
		Handlers: []httptransport.Registrar{
			httptransport.NewCasesHandler(a.cases, a.logger),
			httptransport.NewApprovalHandler(a.approvals, a.cases, a.logger),
			httptransport.NewRevealHandler(a.reveals, a.cases, a.logger),
			httptransport.NewDeadlineHandler(a.scheduler, a.cases, a.committee, a.logger),
			httptransport.NewCommitteeHandler(a.committee, a.logger),
		},
	})
}

func (a *app) worker() (*worker.Worker, error) {
	return worker.New(a.queue, a.scheduler,
		worker.WithConcurrency(a.cfg.Worker.Concurrency),
		worker.WithPollInterval(a.cfg.Worker.PollInterval),
		worker.WithMaxAttempts(a.cfg.Worker.MaxAttempts),
		worker.WithBatchSize(a.cfg.Worker.BatchSize),
		worker.WithLogger(a.logger),
		worker.WithMetrics(a.metrics),
		worker.WithAuditPublisher(a.audit),
	)
}

// relay returns the Kafka outbox relay, or nil when Kafka or Postgres is not
// configured. The returned close func releases the Kafka client.
func (a *app) relay(ctx context.Context) (*outbox.Relay, func(), error) {
	if len(a.cfg.Kafka.Brokers) == 0 {
		return nil, func() {}, nil
	}
	if a.db == nil {
		a.logger.WarnContext(ctx, "kafka brokers configured without a database, audit relay disabled")
		return nil, func() {}, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(a.cfg.Kafka.Brokers...),
		kgo.DefaultProduceTopic(a.cfg.Kafka.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka client: %w", err)
	}
	if err := outbox.EnsureTopic(ctx, client, a.cfg.Kafka.Topic, 3, 1); err != nil {
		client.Close()
		return nil, nil, err
	}
	r, err := outbox.NewRelay(a.db, client, a.cfg.Kafka.Topic,
		outbox.WithInterval(a.cfg.Kafka.Interval),
		outbox.WithLogger(a.logger),
	)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return r, client.Close, nil
}

func (a *app) Close() {
	var errs []error
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("shutdown cleanup failed", "error", err)
	}
}

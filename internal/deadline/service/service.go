// Package service computes statutory deadlines, schedules the amber and red
// escalation alerts, enforces the extension ceiling and delivers due alerts
// for the worker.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	casemodels "safeharbour/internal/cases/models"
	committeemodels "safeharbour/internal/committee/models"
	"safeharbour/internal/deadline/metrics"
	"safeharbour/internal/deadline/models"
	id "safeharbour/pkg/domain"
	dErrors "safeharbour/pkg/domain-errors"
	audit "safeharbour/pkg/platform/audit"
	"safeharbour/pkg/platform/sentinel"
	"safeharbour/pkg/requestcontext"
)

var tracer = otel.Tracer("safeharbour/deadline")

type Store interface {
	CreateRecord(ctx context.Context, rec *models.Record) error
	FindRecord(ctx context.Context, subject id.CaseID) (*models.Record, error)
	// Extend adds whole days to the current deadline and returns the deadline
	// before the change. When the result would pass the maximum it returns the
	// unchanged record with sentinel.ErrInvalidState.
	Extend(ctx context.Context, subject id.CaseID, days int) (time.Time, *models.Record, error)
	CreateAlerts(ctx context.Context, alerts []*models.Alert) error
	FindAlert(ctx context.Context, alertID id.AlertID) (*models.Alert, error)
	FindAlertByKey(ctx context.Context, subject id.CaseID, kind models.AlertKind) (*models.Alert, error)
	ListAlerts(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error)
	CancelScheduled(ctx context.Context, subject id.CaseID) ([]*models.Alert, error)
	MarkDelivered(ctx context.Context, alertID id.AlertID, recipient *string, at time.Time) (bool, error)
	MarkSuppressed(ctx context.Context, alertID id.AlertID) (bool, error)
	// Acknowledge stamps the first acknowledgement of a delivered alert and
	// reports whether this call set it.
	Acknowledge(ctx context.Context, alertID id.AlertID, actor string, at time.Time) (*models.Alert, bool, error)
}

// Queue holds delayed alert jobs keyed by models.JobKey.
type Queue interface {
	Enqueue(ctx context.Context, job models.Job) error
	Cancel(ctx context.Context, key string) error
}

type CaseStatus interface {
	Status(ctx context.Context, caseID id.CaseID) (casemodels.Status, error)
}

// Recipients resolves the committee member holding a designation. An empty
// UIN means nobody is designated.
type Recipients interface {
	Designated(ctx context.Context, orgID id.OrgID, d committeemodels.Designation) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Scheduler struct {
	store          Store
	queue          Queue
	cases          CaseStatus
	recipients     Recipients
	policy         models.Policy
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Scheduler) {
		s.auditPublisher = publisher
	}
}

func WithPolicy(p models.Policy) Option {
	return func(s *Scheduler) {
		s.policy = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

func New(store Store, queue Queue, cases CaseStatus, recipients Recipients, opts ...Option) (*Scheduler, error) {
	if store == nil {
		return nil, errors.New("deadline store is required")
	}
	if queue == nil {
		return nil, errors.New("alert queue is required")
	}
	if cases == nil || recipients == nil {
		return nil, errors.New("case status and recipients are required")
	}
	s := &Scheduler{
		store:      store,
		queue:      queue,
		cases:      cases,
		recipients: recipients,
		policy:     models.DefaultPolicy(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.policy.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "invalid deadline policy")
	}
	return s, nil
}

// Schedule records the deadline and both alerts, then enqueues the alerts.
// Enqueue failures are returned in the result; the record and alerts stay
// persisted either way.
func (s *Scheduler) Schedule(ctx context.Context, subject id.CaseID, org id.OrgID, createdAt time.Time) (*models.ScheduleResult, error) {
	ctx, span := tracer.Start(ctx, "deadline.schedule")
	defer span.End()

	rec := models.NewRecord(subject, org, createdAt, s.policy)
	if err := s.store.CreateRecord(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "deadline already scheduled for this case")
		}
		return nil, translate(err, "deadline not found")
	}

	alerts := []*models.Alert{
		s.newAlert(rec, models.AlertAmber, createdAt.Add(s.policy.AmberOffset)),
		s.newAlert(rec, models.AlertRed, createdAt.Add(s.policy.RedOffset)),
	}
	if err := s.store.CreateAlerts(ctx, alerts); err != nil {
		return nil, translate(err, "alert not found")
	}

	ev := audit.New(audit.EventDeadlineScheduled, subject.String(), requestcontext.ActorUIN(ctx))
	ev.Metadata = map[string]string{
		"deadline":     rec.CurrentDeadline.UTC().Format(time.RFC3339),
		"max_deadline": rec.MaxDeadline.UTC().Format(time.RFC3339),
	}
	if err := s.emit(ctx, ev); err != nil {
		return nil, err
	}

	result := &models.ScheduleResult{Record: rec, Alerts: alerts}
	s.enqueue(ctx, result)
	span.SetAttributes(attribute.Int("deadline.enqueue_failures", len(result.Failures)))
	return result, nil
}

// Requeue re-enqueues every still-scheduled alert of a case, for recovering
// from enqueue failures reported by Schedule.
func (s *Scheduler) Requeue(ctx context.Context, subject id.CaseID) (*models.ScheduleResult, error) {
	rec, err := s.store.FindRecord(ctx, subject)
	if err != nil {
		return nil, translate(err, "deadline not found")
	}
	alerts, err := s.store.ListAlerts(ctx, models.AlertFilter{SubjectID: &subject, Status: models.AlertScheduled})
	if err != nil {
		return nil, translate(err, "alert not found")
	}
	result := &models.ScheduleResult{Record: rec, Alerts: alerts}
	s.enqueue(ctx, result)
	return result, nil
}

func (s *Scheduler) enqueue(ctx context.Context, result *models.ScheduleResult) {
	for _, a := range result.Alerts {
		if err := s.queue.Enqueue(ctx, a.Job()); err != nil {
			s.metrics.IncrementEnqueueFailure()
			s.logger.WarnContext(ctx, "failed to enqueue alert",
				"job_key", a.JobKey(),
				"fire_at", a.FireAt,
				"error", err,
			)
			result.Failures = append(result.Failures, models.ScheduleFailure{JobKey: a.JobKey(), Err: err})
		}
	}
}

func (s *Scheduler) newAlert(rec *models.Record, kind models.AlertKind, fireAt time.Time) *models.Alert {
	return &models.Alert{
		ID:        id.NewAlertID(),
		SubjectID: rec.SubjectID,
		OrgID:     rec.OrgID,
		Kind:      kind,
		FireAt:    fireAt,
		Status:    models.AlertScheduled,
	}
}

// Deadline returns the current deadline record of a case.
func (s *Scheduler) Deadline(ctx context.Context, subject id.CaseID) (*models.Record, error) {
	rec, err := s.store.FindRecord(ctx, subject)
	if err != nil {
		return nil, translate(err, "deadline not found")
	}
	return rec, nil
}

type ExtendRequest struct {
	SubjectID id.CaseID
	ActorID   string
	Reason    string
	ExtraDays int
}

// Extend pushes the deadline back by whole days. The result may equal the
// statutory maximum but never pass it. Queued alerts keep their original
// fire times.
func (s *Scheduler) Extend(ctx context.Context, req ExtendRequest) (*models.Record, error) {
	ctx, span := tracer.Start(ctx, "deadline.extend")
	defer span.End()

	reason := strings.TrimSpace(req.Reason)
	if utf8.RuneCountInString(reason) < s.policy.MinExtensionReason {
		return nil, dErrors.New(dErrors.CodeValidation,
			"reason must be at least "+strconv.Itoa(s.policy.MinExtensionReason)+" characters")
	}
	if req.ExtraDays <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "extra days must be positive")
	}

	previous, updated, err := s.store.Extend(ctx, req.SubjectID, req.ExtraDays)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			s.metrics.IncrementExtension("policy_limit")
			return nil, limitError(updated)
		}
		return nil, translate(err, "deadline not found")
	}
	s.metrics.IncrementExtension("extended")

	ev := audit.New(audit.EventDeadlineExtended, req.SubjectID.String(), req.ActorID)
	ev.Reason = reason
	ev.Metadata = map[string]string{
		"previous_deadline": previous.UTC().Format(time.RFC3339),
		"new_deadline":      updated.CurrentDeadline.UTC().Format(time.RFC3339),
		"extension_count":   strconv.Itoa(updated.ExtensionCount),
	}
	if err := s.emit(ctx, ev); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "deadline extended",
		"subject_id", req.SubjectID,
		"previous", previous,
		"new", updated.CurrentDeadline,
	)
	return updated, nil
}

func limitError(rec *models.Record) error {
	if rec == nil {
		return dErrors.New(dErrors.CodePolicyLimit, "extension would pass the statutory maximum")
	}
	return dErrors.New(dErrors.CodePolicyLimit,
		"extension would pass the statutory maximum of "+rec.MaxDeadline.UTC().Format(time.RFC3339))
}

// CancelAlerts marks every scheduled alert of a case cancelled and removes
// the queued jobs. Queue removal is best effort; Deliver re-checks status.
func (s *Scheduler) CancelAlerts(ctx context.Context, subject id.CaseID) error {
	cancelled, err := s.store.CancelScheduled(ctx, subject)
	if err != nil {
		return translate(err, "deadline not found")
	}
	for _, a := range cancelled {
		if err := s.queue.Cancel(ctx, a.JobKey()); err != nil {
			s.logger.WarnContext(ctx, "failed to remove queued alert",
				"job_key", a.JobKey(),
				"error", err,
			)
		}
	}
	if len(cancelled) > 0 {
		ev := audit.New(audit.EventAlertsCancelled, subject.String(), requestcontext.ActorUIN(ctx))
		ev.Metadata = map[string]string{"count": strconv.Itoa(len(cancelled))}
		_ = s.emit(ctx, ev)
	}
	return nil
}

// Deliver handles one due job. It is idempotent: a job whose alert is no
// longer scheduled is a no-op. Returned errors carry dErrors codes so the
// worker can tell transient failures apart.
func (s *Scheduler) Deliver(ctx context.Context, job models.Job) (models.DeliveryOutcome, error) {
	ctx, span := tracer.Start(ctx, "deadline.deliver",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("alert.kind", string(job.Kind)),
			attribute.Int("alert.attempt", job.Attempt),
		),
	)
	defer span.End()

	alert, err := s.store.FindAlertByKey(ctx, job.SubjectID, job.Kind)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "alert job without alert record", "job_key", job.Key)
			return models.OutcomeNoop, nil
		}
		return "", translate(err, "alert not found")
	}
	if alert.Status != models.AlertScheduled {
		return models.OutcomeNoop, nil
	}

	status, err := s.cases.Status(ctx, job.SubjectID)
	if err != nil {
		return "", err
	}
	if status.IsTerminal() {
		if err := s.CancelAlerts(ctx, job.SubjectID); err != nil {
			return "", err
		}
		s.metrics.IncrementOutcome(string(job.Kind), string(models.OutcomeCancelled))
		return models.OutcomeCancelled, nil
	}

	if job.Kind == models.AlertAmber && status == casemodels.StatusUnderInvestigation {
		won, err := s.store.MarkSuppressed(ctx, alert.ID)
		if err != nil {
			return "", translate(err, "alert not found")
		}
		if !won {
			return models.OutcomeNoop, nil
		}
		ev := audit.New(audit.EventAlertSuppressed, job.SubjectID.String(), "")
		ev.Metadata = map[string]string{"kind": string(job.Kind)}
		_ = s.emit(ctx, ev)
		s.metrics.IncrementOutcome(string(job.Kind), string(models.OutcomeSuppressed))
		return models.OutcomeSuppressed, nil
	}

	recipient, err := s.recipient(ctx, alert)
	if err != nil {
		return "", err
	}
	won, err := s.store.MarkDelivered(ctx, alert.ID, recipient, requestcontext.Now(ctx))
	if err != nil {
		return "", translate(err, "alert not found")
	}
	if !won {
		return models.OutcomeNoop, nil
	}

	ev := audit.New(audit.EventAlertDelivered, job.SubjectID.String(), "")
	ev.Metadata = map[string]string{"kind": string(job.Kind)}
	if recipient != nil {
		ev.Metadata["recipient"] = *recipient
	} else {
		s.logger.WarnContext(ctx, "alert delivered without a designated recipient",
			"subject_id", job.SubjectID,
			"kind", job.Kind,
		)
	}
	_ = s.emit(ctx, ev)
	s.metrics.IncrementOutcome(string(job.Kind), string(models.OutcomeDelivered))
	return models.OutcomeDelivered, nil
}

// recipient resolves amber to the chair and red to the escalation contact.
// Only transient lookup failures are returned.
func (s *Scheduler) recipient(ctx context.Context, alert *models.Alert) (*string, error) {
	designation := committeemodels.DesignationChair
	if alert.Kind == models.AlertRed {
		designation = committeemodels.DesignationEscalation
	}
	uin, err := s.recipients.Designated(ctx, alert.OrgID, designation)
	if err != nil {
		if dErrors.IsRetryable(err) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "recipient lookup failed", "org_id", alert.OrgID, "error", err)
		return nil, nil
	}
	if uin == "" {
		return nil, nil
	}
	return &uin, nil
}

// ListAlerts returns alerts of one case or one organization.
func (s *Scheduler) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error) {
	if (filter.SubjectID == nil) == (filter.OrgID == nil) {
		return nil, dErrors.New(dErrors.CodeValidation, "exactly one of subject id and organization id is required")
	}
	if filter.Kind != "" {
		if _, err := models.ParseAlertKind(string(filter.Kind)); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid alert kind")
		}
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid alert status")
	}
	alerts, err := s.store.ListAlerts(ctx, filter)
	if err != nil {
		return nil, translate(err, "alert not found")
	}
	return alerts, nil
}

// Acknowledge records that a delivered alert was seen. Repeat calls return
// the first acknowledgement.
func (s *Scheduler) Acknowledge(ctx context.Context, alertID id.AlertID, actor string) (*models.Alert, error) {
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor is required")
	}
	now := requestcontext.Now(ctx)
	alert, first, err := s.store.Acknowledge(ctx, alertID, actor, now)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeConflict, "alert has not been delivered")
		}
		return nil, translate(err, "alert not found")
	}
	if first {
		ev := audit.New(audit.EventAlertAcknowledged, alert.SubjectID.String(), actor)
		ev.Metadata = map[string]string{"kind": string(alert.Kind)}
		_ = s.emit(ctx, ev)
	}
	return alert, nil
}

// Alert returns one alert.
func (s *Scheduler) Alert(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	a, err := s.store.FindAlert(ctx, alertID)
	if err != nil {
		return nil, translate(err, "alert not found")
	}
	return a, nil
}

func (s *Scheduler) emit(ctx context.Context, event audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

func translate(err error, notFound string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFound)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeTransient, "deadline store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "deadline store failure")
	}
}

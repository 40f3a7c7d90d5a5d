// Package service runs the case lifecycle: submission, investigation and the
// two committee-approved mutations (resolution and interim relief).
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"safeharbour/internal/cases/models"
	committeemodels "safeharbour/internal/committee/models"
	deadlinemodels "safeharbour/internal/deadline/models"
	id "safeharbour/pkg/domain"
	dErrors "safeharbour/pkg/domain-errors"
	audit "safeharbour/pkg/platform/audit"
	"safeharbour/pkg/platform/sentinel"
	txcontext "safeharbour/pkg/platform/tx"
	"safeharbour/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, c *models.Case) error
	FindByID(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	// Transition moves the case to `to` only if its status is one of `from`,
	// returning sentinel.ErrInvalidState otherwise.
	Transition(ctx context.Context, caseID id.CaseID, from []models.Status, to models.Status, now time.Time) (*models.Case, error)
	SetInterimRelief(ctx context.Context, caseID id.CaseID, at time.Time) (*models.Case, error)
}

type IdentityResolver interface {
	OrgOf(ctx context.Context, uin string) (id.OrgID, error)
}

type CommitteeDirectory interface {
	Member(ctx context.Context, uin string) (*committeemodels.Member, error)
}

type Scheduler interface {
	Schedule(ctx context.Context, subject id.CaseID, org id.OrgID, createdAt time.Time) (*deadlinemodels.ScheduleResult, error)
	CancelAlerts(ctx context.Context, subject id.CaseID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	identities     IdentityResolver
	committee      CommitteeDirectory
	scheduler      Scheduler
	tx             txcontext.Runner
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithTxRunner(runner txcontext.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func New(store Store, identities IdentityResolver, committee CommitteeDirectory, scheduler Scheduler, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("case store is required")
	}
	if identities == nil || committee == nil || scheduler == nil {
		return nil, errors.New("identity resolver, committee directory and scheduler are required")
	}
	s := &Service{
		store:      store,
		identities: identities,
		committee:  committee,
		scheduler:  scheduler,
		tx:         txcontext.Passthrough{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type SubmitRequest struct {
	OrgID      id.OrgID
	VictimUIN  string
	SubjectUIN string
}

// SubmitResult carries the case and the outcome of deadline scheduling.
// Schedule.Failures lists reminders that were recorded but not enqueued.
type SubmitResult struct {
	Case     *models.Case
	Schedule *deadlinemodels.ScheduleResult
}

// Submit files a case and schedules its statutory deadline in one
// transaction. A queue failure does not fail the submission; it is reported
// in the result.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.OrgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "organization id is required")
	}
	if req.VictimUIN == "" || req.SubjectUIN == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "victim and subject are required")
	}
	if req.VictimUIN == req.SubjectUIN {
		return nil, dErrors.New(dErrors.CodeValidation, "victim and subject must differ")
	}
	for _, uin := range []string{req.VictimUIN, req.SubjectUIN} {
		org, err := s.identities.OrgOf(ctx, uin)
		if err != nil {
			return nil, err
		}
		if org != req.OrgID {
			return nil, dErrors.New(dErrors.CodeValidation, "both parties must belong to the organization")
		}
	}

	now := requestcontext.Now(ctx)
	c := &models.Case{
		ID:         id.NewCaseID(),
		OrgID:      req.OrgID,
		VictimUIN:  req.VictimUIN,
		SubjectUIN: req.SubjectUIN,
		Status:     models.StatusSubmitted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var result *SubmitResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, c); err != nil {
			return translate(err, "case not found")
		}
		schedule, err := s.scheduler.Schedule(ctx, c.ID, c.OrgID, c.CreatedAt)
		if err != nil {
			return err
		}
		ev := audit.New(audit.EventCaseSubmitted, c.ID.String(), req.VictimUIN)
		ev.Metadata = map[string]string{"org_id": c.OrgID.String()}
		if err := s.emit(ctx, ev); err != nil {
			return err
		}
		result = &SubmitResult{Case: c, Schedule: schedule}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Schedule.Complete() {
		s.logger.ErrorContext(ctx, "case submitted with unscheduled alerts",
			"case_id", c.ID,
			"failures", len(result.Schedule.Failures),
		)
	}
	return result, nil
}

// Get returns a case to its reporter or to a committee member of its org.
func (s *Service) Get(ctx context.Context, actorUIN string, caseID id.CaseID) (*models.Case, error) {
	c, err := s.store.FindByID(ctx, caseID)
	if err != nil {
		return nil, translate(err, "case not found")
	}
	if actorUIN == c.VictimUIN {
		return c, nil
	}
	if _, err := s.authorizeCommittee(ctx, actorUIN, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Status returns the current status of a case.
func (s *Service) Status(ctx context.Context, caseID id.CaseID) (models.Status, error) {
	return NewStatusReader(s.store).Status(ctx, caseID)
}

// StatusReader reads case status straight from the store. The deadline
// scheduler uses it, since the case service itself depends on the scheduler.
type StatusReader struct {
	store Store
}

func NewStatusReader(store Store) *StatusReader {
	return &StatusReader{store: store}
}

func (r *StatusReader) Status(ctx context.Context, caseID id.CaseID) (models.Status, error) {
	c, err := r.store.FindByID(ctx, caseID)
	if err != nil {
		return "", translate(err, "case not found")
	}
	return c.Status, nil
}

// StartInvestigation moves a submitted case under investigation.
func (s *Service) StartInvestigation(ctx context.Context, actorUIN string, caseID id.CaseID) (*models.Case, error) {
	c, err := s.store.FindByID(ctx, caseID)
	if err != nil {
		return nil, translate(err, "case not found")
	}
	if _, err := s.authorizeCommittee(ctx, actorUIN, c); err != nil {
		return nil, err
	}

	var updated *models.Case
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.store.Transition(ctx, caseID,
			[]models.Status{models.StatusSubmitted}, models.StatusUnderInvestigation, requestcontext.Now(ctx))
		if err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeConflict, "case is not awaiting investigation")
			}
			return translate(err, "case not found")
		}
		return s.emit(ctx, audit.New(audit.EventInvestigationStarted, caseID.String(), actorUIN))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Resolve closes a case. It runs as the close_case approval executor, inside
// the approval's transaction; CancelAlerts follows once that commits.
func (s *Service) Resolve(ctx context.Context, caseID id.CaseID) error {
	_, err := s.store.Transition(ctx, caseID,
		[]models.Status{models.StatusSubmitted, models.StatusUnderInvestigation},
		models.StatusResolved, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.New(dErrors.CodeConflict, "case is already resolved")
		}
		return translate(err, "case not found")
	}
	return s.emit(ctx, audit.New(audit.EventCaseResolved, caseID.String(), requestcontext.ActorUIN(ctx)))
}

// CancelAlerts withdraws the outstanding alerts of a resolved case. Failures
// are logged: the worker re-reads case status before firing.
func (s *Service) CancelAlerts(ctx context.Context, caseID id.CaseID) {
	if err := s.scheduler.CancelAlerts(ctx, caseID); err != nil {
		s.logger.WarnContext(ctx, "failed to cancel alerts for resolved case", "case_id", caseID, "error", err)
	}
}

// GrantInterimRelief stamps the grant time. It runs as the interim_relief
// approval executor.
func (s *Service) GrantInterimRelief(ctx context.Context, caseID id.CaseID) error {
	c, err := s.store.SetInterimRelief(ctx, caseID, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.New(dErrors.CodeConflict, "case is already resolved")
		}
		return translate(err, "case not found")
	}
	ev := audit.New(audit.EventInterimReliefGranted, caseID.String(), requestcontext.ActorUIN(ctx))
	ev.Metadata = map[string]string{"granted_at": c.InterimReliefAt.UTC().Format(time.RFC3339)}
	return s.emit(ctx, ev)
}

// CommitteeRole returns the actor's committee role when they sit on the
// committee of the case's organization.
func (s *Service) CommitteeRole(ctx context.Context, actorUIN string, caseID id.CaseID) (id.Role, error) {
	c, err := s.store.FindByID(ctx, caseID)
	if err != nil {
		return "", translate(err, "case not found")
	}
	m, err := s.authorizeCommittee(ctx, actorUIN, c)
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

// OrgOf returns the organization that owns a case.
func (s *Service) OrgOf(ctx context.Context, caseID id.CaseID) (id.OrgID, error) {
	c, err := s.store.FindByID(ctx, caseID)
	if err != nil {
		return id.OrgID{}, translate(err, "case not found")
	}
	return c.OrgID, nil
}

// VictimOf returns the reporting party's UIN.
func (s *Service) VictimOf(ctx context.Context, caseID id.CaseID) (string, error) {
	c, err := s.store.FindByID(ctx, caseID)
	if err != nil {
		return "", translate(err, "case not found")
	}
	return c.VictimUIN, nil
}

func (s *Service) authorizeCommittee(ctx context.Context, actorUIN string, c *models.Case) (*committeemodels.Member, error) {
	m, err := s.committee.Member(ctx, actorUIN)
	if err != nil {
		return nil, err
	}
	if m.OrgID != c.OrgID {
		s.logger.WarnContext(ctx, "committee member of another org attempted case access",
			"case_id", c.ID,
			"actor", actorUIN,
		)
		return nil, dErrors.New(dErrors.CodeForbidden, "actor is not on this organization's committee")
	}
	return m, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
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
		return dErrors.Wrap(err, dErrors.CodeTransient, "case store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "case store failure")
	}
}

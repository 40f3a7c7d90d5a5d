package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"safeharbour/internal/cases/models"
	"safeharbour/internal/cases/store"
	committeemodels "safeharbour/internal/committee/models"
	deadlinemodels "safeharbour/internal/deadline/models"
	id "safeharbour/pkg/domain"
	dErrors "safeharbour/pkg/domain-errors"
	audit "safeharbour/pkg/platform/audit"
	auditmemory "safeharbour/pkg/platform/audit/store/memory"
	"safeharbour/pkg/requestcontext"
)

const (
	victimUIN  = "1111111111"
	subjectUIN = "2222222222"
	memberUIN  = "3333333333"
	outsider   = "4444444444"
)

type fakeIdentities map[string]id.OrgID

func (f fakeIdentities) OrgOf(_ context.Context, uin string) (id.OrgID, error) {
	org, ok := f[uin]
	if !ok {
		return id.OrgID{}, dErrors.New(dErrors.CodeNotFound, "identity not found")
	}
	return org, nil
}

type fakeCommittee map[string]*committeemodels.Member

func (f fakeCommittee) Member(_ context.Context, uin string) (*committeemodels.Member, error) {
	m, ok := f[uin]
	if !ok {
		return nil, dErrors.New(dErrors.CodeForbidden, "actor is not a committee member")
	}
	return m, nil
}

type fakeScheduler struct {
	scheduled   []id.CaseID
	cancelled   []id.CaseID
	failEnqueue bool
	err         error
}

func (f *fakeScheduler) Schedule(_ context.Context, subject id.CaseID, org id.OrgID, createdAt time.Time) (*deadlinemodels.ScheduleResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.scheduled = append(f.scheduled, subject)
	res := &deadlinemodels.ScheduleResult{Record: deadlinemodels.NewRecord(subject, org, createdAt, deadlinemodels.DefaultPolicy())}
	if f.failEnqueue {
		res.Failures = []deadlinemodels.ScheduleFailure{{JobKey: deadlinemodels.JobKey(subject, deadlinemodels.AlertAmber), Err: errors.New("queue down")}}
	}
	return res, nil
}

func (f *fakeScheduler) CancelAlerts(_ context.Context, subject id.CaseID) error {
	if f.err != nil {
		return f.err
	}
	f.cancelled = append(f.cancelled, subject)
	return nil
}

type storeEmitter struct{ store audit.Store }

func (e storeEmitter) Emit(ctx context.Context, ev audit.Event) error { return e.store.Append(ctx, ev) }

type ServiceSuite struct {
	suite.Suite
	service   *Service
	scheduler *fakeScheduler
	audit     *auditmemory.InMemoryStore
	ctx       context.Context
	orgID     id.OrgID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.orgID = id.NewOrgID()
	identities := fakeIdentities{victimUIN: s.orgID, subjectUIN: s.orgID, outsider: id.NewOrgID()}
	committee := fakeCommittee{
		memberUIN: {OrgID: s.orgID, UIN: memberUIN, Role: id.RoleMember},
		outsider:  {OrgID: id.NewOrgID(), UIN: outsider, Role: id.RolePresiding},
	}
	s.scheduler = &fakeScheduler{}
	s.audit = auditmemory.NewInMemoryStore()

	var err error
	s.service, err = New(store.NewInMemory(), identities, committee, s.scheduler, WithAuditPublisher(storeEmitter{s.audit}))
	s.Require().NoError(err)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC))
}

func (s *ServiceSuite) submit() *models.Case {
	res, err := s.service.Submit(s.ctx, SubmitRequest{OrgID: s.orgID, VictimUIN: victimUIN, SubjectUIN: subjectUIN})
	s.Require().NoError(err)
	return res.Case
}

func (s *ServiceSuite) TestSubmit() {
	s.Run("creates a submitted case and schedules its deadline", func() {
		res, err := s.service.Submit(s.ctx, SubmitRequest{OrgID: s.orgID, VictimUIN: victimUIN, SubjectUIN: subjectUIN})
		s.Require().NoError(err)
		s.Equal(models.StatusSubmitted, res.Case.Status)
		s.True(res.Schedule.Complete())
		s.Contains(s.scheduler.scheduled, res.Case.ID)
		s.NotEmpty(s.audit.ListByAction(s.ctx, audit.EventCaseSubmitted))
	})

	s.Run("queue failures are reported, not swallowed", func() {
		s.scheduler.failEnqueue = true
		defer func() { s.scheduler.failEnqueue = false }()

		res, err := s.service.Submit(s.ctx, SubmitRequest{OrgID: s.orgID, VictimUIN: victimUIN, SubjectUIN: subjectUIN})
		s.Require().NoError(err)
		s.False(res.Schedule.Complete())
		s.Len(res.Schedule.Failures, 1)
	})

	s.Run("deadline persistence failure fails the submission", func() {
		s.scheduler.err = dErrors.New(dErrors.CodeTransient, "deadline store unavailable")
		defer func() { s.scheduler.err = nil }()

		_, err := s.service.Submit(s.ctx, SubmitRequest{OrgID: s.orgID, VictimUIN: victimUIN, SubjectUIN: subjectUIN})
		s.True(dErrors.HasCode(err, dErrors.CodeTransient))
	})

	s.Run("rejects parties outside the org", func() {
		_, err := s.service.Submit(s.ctx, SubmitRequest{OrgID: s.orgID, VictimUIN: victimUIN, SubjectUIN: outsider})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects self-complaint", func() {
		_, err := s.service.Submit(s.ctx, SubmitRequest{OrgID: s.orgID, VictimUIN: victimUIN, SubjectUIN: victimUIN})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestStartInvestigation() {
	c := s.submit()

	s.Run("committee member of another org is forbidden", func() {
		_, err := s.service.StartInvestigation(s.ctx, outsider, c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("member starts investigation", func() {
		updated, err := s.service.StartInvestigation(s.ctx, memberUIN, c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusUnderInvestigation, updated.Status)
	})

	s.Run("second start conflicts", func() {
		_, err := s.service.StartInvestigation(s.ctx, memberUIN, c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestResolve() {
	c := s.submit()

	s.Require().NoError(s.service.Resolve(s.ctx, c.ID))
	status, err := s.service.Status(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusResolved, status)
	s.Empty(s.scheduler.cancelled, "alerts are withdrawn after the approval commits")

	s.service.CancelAlerts(s.ctx, c.ID)
	s.Contains(s.scheduler.cancelled, c.ID)

	err = s.service.Resolve(s.ctx, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	err = s.service.GrantInterimRelief(s.ctx, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestCancelAlertsFailureIsLogged() {
	c := s.submit()
	s.scheduler.err = errors.New("redis down")
	s.NotPanics(func() { s.service.CancelAlerts(s.ctx, c.ID) })
	s.Empty(s.scheduler.cancelled)
}

func (s *ServiceSuite) TestGrantInterimRelief() {
	c := s.submit()
	s.Require().NoError(s.service.GrantInterimRelief(s.ctx, c.ID))

	got, err := s.service.Get(s.ctx, victimUIN, c.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.InterimReliefAt)
	s.Equal(requestcontext.Now(s.ctx), *got.InterimReliefAt)
}

func (s *ServiceSuite) TestGet() {
	c := s.submit()

	_, err := s.service.Get(s.ctx, memberUIN, c.ID)
	s.NoError(err)

	_, err = s.service.Get(s.ctx, subjectUIN, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.Get(s.ctx, memberUIN, id.NewCaseID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestCommitteeRole() {
	c := s.submit()

	s.Run("member of the case's org", func() {
		role, err := s.service.CommitteeRole(s.ctx, memberUIN, c.ID)
		s.Require().NoError(err)
		s.Equal(id.RoleMember, role)
	})

	s.Run("presiding member of another org is forbidden", func() {
		_, err := s.service.CommitteeRole(s.ctx, outsider, c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("status reader sees the same case", func() {
		status, err := s.service.Status(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusSubmitted, status)
	})
}

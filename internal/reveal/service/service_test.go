package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks CaseParties,Vault,AuditPublisher

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"safeharbour/internal/reveal/models"
	"safeharbour/internal/reveal/service/mocks"
	"safeharbour/internal/reveal/store"
	id "safeharbour/pkg/domain"
	dErrors "safeharbour/pkg/domain-errors"
	audit "safeharbour/pkg/platform/audit"
	"safeharbour/pkg/testutil"
)

const (
	requester = "1000000001"
	approverA = "1000000002"
	approverB = "1000000003"
	victim    = "4000000000"
	reason    = "Respondent claims retaliation; need to verify reporter identity."
)

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	cases   *mocks.MockCaseParties
	vault   *mocks.MockVault
	auditor *mocks.MockAuditPublisher
	events  []audit.Event
	store   *store.InMemory
	service *Service
	ctx     context.Context
	subject id.CaseID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.cases = mocks.NewMockCaseParties(s.ctrl)
	s.vault = mocks.NewMockVault(s.ctrl)
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)
	s.events = nil
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev audit.Event) error {
		s.events = append(s.events, ev)
		return nil
	}).AnyTimes()
	s.store = store.NewInMemory()
	s.subject = id.NewCaseID()
	s.cases.EXPECT().VictimOf(gomock.Any(), s.subject).Return(victim, nil).AnyTimes()

	svc, err := New(s.store, s.cases, s.vault, WithAuditPublisher(s.auditor))
	s.Require().NoError(err)
	s.service = svc
	s.ctx = testutil.ActorContext(requester, time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC))
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) initiate() *models.Request {
	req, err := s.service.Initiate(s.ctx, s.subject, requester, id.RoleMember, reason)
	s.Require().NoError(err)
	return req
}

func (s *ServiceSuite) approveBoth(req *models.Request) {
	_, err := s.service.Approve(s.ctx, req.ID, approverA, id.RolePresiding)
	s.Require().NoError(err)
	res, err := s.service.Approve(s.ctx, req.ID, approverB, id.RoleExternal)
	s.Require().NoError(err)
	s.Require().True(res.QuorumMet)
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *ServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.cases, s.vault)
		s.Require().Error(err)
		s.Contains(err.Error(), "store is required")
	})

	s.Run("nil vault returns error", func() {
		_, err := New(s.store, s.cases, nil)
		s.Require().Error(err)
		s.Contains(err.Error(), "vault are required")
	})
}

// =============================================================================
// Initiate Tests
// =============================================================================

func (s *ServiceSuite) TestInitiate() {
	s.Run("short reason is rejected", func() {
		_, err := s.service.Initiate(s.ctx, s.subject, requester, id.RoleMember, "   need to know   ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("reason length counts runes", func() {
		_, err := s.service.Initiate(s.ctx, s.subject, requester, id.RoleMember, strings.Repeat("é", 29))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("non-committee requester is forbidden", func() {
		_, err := s.service.Initiate(s.ctx, s.subject, victim, id.RoleReporter, reason)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("creates a pending request", func() {
		req := s.initiate()
		s.Equal(models.StatusPending, req.Status)
		s.Equal(2, req.RequiredApprovals)
	})

	s.Run("second open request conflicts", func() {
		_, err := s.service.Initiate(s.ctx, s.subject, approverA, id.RoleMember, reason)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// =============================================================================
// Approve Tests
// =============================================================================

func (s *ServiceSuite) TestSelfVote() {
	req := s.initiate()
	_, err := s.service.Approve(s.ctx, req.ID, requester, id.RoleMember)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Contains(dErrors.Message(err), "self-vote")

	approvals, err := s.store.ListApprovals(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Empty(approvals)
	s.Equal(string(audit.EventRevealSelfVote), s.events[len(s.events)-1].Action)
}

func (s *ServiceSuite) TestApprove() {
	req := s.initiate()

	res, err := s.service.Approve(s.ctx, req.ID, approverA, id.RoleMember)
	s.Require().NoError(err)
	s.Equal(1, res.ApprovalsCount)
	s.False(res.QuorumMet)

	_, err = s.service.Approve(s.ctx, req.ID, approverA, id.RoleMember)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "duplicate approval")

	res, err = s.service.Approve(s.ctx, req.ID, approverB, id.RoleExternal)
	s.Require().NoError(err)
	s.Equal(2, res.ApprovalsCount)
	s.True(res.QuorumMet)
	s.Equal(models.StatusApproved, res.Status)

	got, err := s.service.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, got.Status, "quorum approves but does not execute")
	s.Empty(got.ExecutedSecret)

	_, err = s.service.Approve(s.ctx, req.ID, "1000000005", id.RoleMember)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

// =============================================================================
// Execute Tests
// =============================================================================

func (s *ServiceSuite) TestExecute() {
	req := s.initiate()

	s.Run("pending request cannot be executed", func() {
		_, err := s.service.Execute(s.ctx, req.ID, approverA, id.RoleMember)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.approveBoth(req)
	s.vault.EXPECT().RetrieveSecret(gomock.Any(), victim).Return("vault://reporter-7", nil)

	s.Run("approved request returns the secret and approvers", func() {
		res, err := s.service.Execute(s.ctx, req.ID, approverA, id.RolePresiding)
		s.Require().NoError(err)
		s.Equal("vault://reporter-7", res.SecretReference)
		s.ElementsMatch([]string{approverA, approverB}, res.Approvers)

		got, err := s.store.FindByID(s.ctx, req.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusExecuted, got.Status)
		s.Equal(approverA, got.ExecutorID)
		s.Equal("vault://reporter-7", got.ExecutedSecret)

		last := s.events[len(s.events)-1]
		s.Equal(string(audit.EventRevealExecuted), last.Action)
		s.Equal(reason, last.Reason)
		s.Equal(approverA, last.Metadata["executor"])
		s.Equal(requester, last.Metadata["requester"])
	})

	s.Run("second execute conflicts", func() {
		_, err := s.service.Execute(s.ctx, req.ID, approverB, id.RoleMember)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("a new request may be opened after execution", func() {
		_, err := s.service.Initiate(s.ctx, s.subject, approverB, id.RoleMember, reason)
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestExecuteUnknownRequest() {
	_, err := s.service.Execute(s.ctx, id.NewRevealID(), approverA, id.RoleMember)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestExecuteVaultFailureLeavesRequestApproved() {
	req := s.initiate()
	s.approveBoth(req)
	s.vault.EXPECT().RetrieveSecret(gomock.Any(), victim).
		Return("", dErrors.New(dErrors.CodeNotFound, "no vault entry for identity"))

	_, err := s.service.Execute(s.ctx, req.ID, approverA, id.RoleMember)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	got, err := s.store.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, got.Status)
}

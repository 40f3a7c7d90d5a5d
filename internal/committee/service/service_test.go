package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"safeharbour/internal/committee/models"
	"safeharbour/internal/committee/store"
	id "safeharbour/pkg/domain"
	dErrors "safeharbour/pkg/domain-errors"
	"safeharbour/pkg/requestcontext"
)

type fakeIdentities map[string]id.OrgID

func (f fakeIdentities) OrgOf(_ context.Context, uin string) (id.OrgID, error) {
	org, ok := f[uin]
	if !ok {
		return id.OrgID{}, dErrors.New(dErrors.CodeNotFound, "identity not found")
	}
	return org, nil
}

type ServiceSuite struct {
	suite.Suite
	service    *Service
	identities fakeIdentities
	ctx        context.Context
	orgID      id.OrgID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.orgID = id.NewOrgID()
	s.identities = fakeIdentities{
		"1000000001": s.orgID,
		"1000000002": s.orgID,
		"1000000003": s.orgID,
		"2000000001": id.NewOrgID(),
	}
	var err error
	s.service, err = New(store.NewInMemory(), s.identities)
	s.Require().NoError(err)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
}

func (s *ServiceSuite) seat(actor, uin string, role id.Role, ds ...models.Designation) error {
	_, err := s.service.AddMember(s.ctx, actor, AddMemberRequest{OrgID: s.orgID, UIN: uin, Role: role, Designations: ds})
	return err
}

func (s *ServiceSuite) TestAddMember() {
	s.Run("operator bootstrap seats the presiding officer", func() {
		s.Require().NoError(s.seat("", "1000000001", id.RolePresiding, models.DesignationChair))
		role, err := s.service.RoleOf(s.ctx, "1000000001")
		s.Require().NoError(err)
		s.Equal(id.RolePresiding, role)
	})

	s.Run("presiding officer adds a member", func() {
		s.Require().NoError(s.seat("1000000001", "1000000002", id.RoleMember, models.DesignationEscalation))
	})

	s.Run("ordinary member cannot change the committee", func() {
		err := s.seat("1000000002", "1000000003", id.RoleMember)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("identity from another org is rejected", func() {
		_, err := s.service.AddMember(s.ctx, "", AddMemberRequest{OrgID: s.orgID, UIN: "2000000001", Role: id.RoleMember})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("non committee role is rejected", func() {
		err := s.seat("", "1000000003", id.RoleReporter)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown designation is rejected", func() {
		err := s.seat("", "1000000003", id.RoleMember, "janitor")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestRoleOfNonMemberIsForbidden() {
	_, err := s.service.RoleOf(s.ctx, "1000000003")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.RoleOf(s.ctx, "")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestDesignated() {
	s.Require().NoError(s.seat("", "1000000001", id.RolePresiding, models.DesignationChair))
	s.Require().NoError(s.seat("", "1000000002", id.RoleMember, models.DesignationEscalation))

	chair, err := s.service.Designated(s.ctx, s.orgID, models.DesignationChair)
	s.Require().NoError(err)
	s.Equal("1000000001", chair)

	escalation, err := s.service.Designated(s.ctx, s.orgID, models.DesignationEscalation)
	s.Require().NoError(err)
	s.Equal("1000000002", escalation)

	nobody, err := s.service.Designated(s.ctx, id.NewOrgID(), models.DesignationChair)
	s.Require().NoError(err)
	s.Empty(nobody)
}

func (s *ServiceSuite) TestDesignationsAreNormalized() {
	m, err := s.service.AddMember(s.ctx, "", AddMemberRequest{
		OrgID:        s.orgID,
		UIN:          "1000000001",
		Role:         id.RolePresiding,
		Designations: []models.Designation{" Chair", "chair", ""},
	})
	s.Require().NoError(err)
	s.Equal([]models.Designation{models.DesignationChair}, m.Designations)
}

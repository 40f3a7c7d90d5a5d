// Package service manages internal committee membership and answers the two
// questions other modules ask of it: what role an actor holds, and who is
// designated to receive an alert.
package service

import (
	"context"
	"errors"
	"log/slog"

	"safeharbour/internal/committee/models"
	id "safeharbour/pkg/domain"
	dErrors "safeharbour/pkg/domain-errors"
	"safeharbour/pkg/platform/sentinel"
	strutil "safeharbour/pkg/platform/strings"
	"safeharbour/pkg/requestcontext"
)

type Store interface {
	Upsert(ctx context.Context, m *models.Member) error
	FindByUIN(ctx context.Context, uin string) (*models.Member, error)
	ListByOrg(ctx context.Context, orgID id.OrgID) ([]*models.Member, error)
	FindDesignated(ctx context.Context, orgID id.OrgID, d models.Designation) (*models.Member, error)
}

// IdentityResolver confirms a UIN names a registered identity.
type IdentityResolver interface {
	OrgOf(ctx context.Context, uin string) (id.OrgID, error)
}

type Service struct {
	store      Store
	identities IdentityResolver
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, identities IdentityResolver, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("committee store is required")
	}
	s := &Service{store: store, identities: identities, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type AddMemberRequest struct {
	OrgID        id.OrgID
	UIN          string
	Role         id.Role
	Designations []models.Designation
}

// AddMember seats or updates a committee member. actorUIN is empty for
// operator bootstrap; otherwise the actor must preside over the same org.
func (s *Service) AddMember(ctx context.Context, actorUIN string, req AddMemberRequest) (*models.Member, error) {
	if req.OrgID.IsNil() || req.UIN == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "organization id and uin are required")
	}
	if !req.Role.IsCommittee() {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be a committee role")
	}
	req.Designations = strutil.Normalize(req.Designations)
	for _, d := range req.Designations {
		if !d.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid designation: "+string(d))
		}
	}

	if actorUIN != "" {
		actor, err := s.Member(ctx, actorUIN)
		if err != nil {
			return nil, err
		}
		if actor.OrgID != req.OrgID || !actor.Role.IsPrivileged() {
			return nil, dErrors.New(dErrors.CodeForbidden, "only the presiding officer may change the committee")
		}
	}

	if s.identities != nil {
		orgID, err := s.identities.OrgOf(ctx, req.UIN)
		if err != nil {
			return nil, err
		}
		if orgID != req.OrgID {
			return nil, dErrors.New(dErrors.CodeValidation, "identity belongs to another organization")
		}
	}

	m := &models.Member{
		OrgID:        req.OrgID,
		UIN:          req.UIN,
		Role:         req.Role,
		Designations: req.Designations,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Upsert(ctx, m); err != nil {
		return nil, translate(err, "committee member not found")
	}
	s.logger.InfoContext(ctx, "committee member seated",
		"org_id", req.OrgID,
		"uin", req.UIN,
		"role", req.Role,
	)
	return m, nil
}

// Member returns the committee seat held by uin. Actors without one are
// forbidden from committee actions.
func (s *Service) Member(ctx context.Context, uin string) (*models.Member, error) {
	if uin == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor is not authenticated")
	}
	m, err := s.store.FindByUIN(ctx, uin)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "actor is not a committee member")
		}
		return nil, translate(err, "")
	}
	return m, nil
}

// RoleOf returns the committee role held by uin.
func (s *Service) RoleOf(ctx context.Context, uin string) (id.Role, error) {
	m, err := s.Member(ctx, uin)
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

func (s *Service) List(ctx context.Context, orgID id.OrgID) ([]*models.Member, error) {
	members, err := s.store.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, translate(err, "")
	}
	return members, nil
}

// Designated returns the UIN holding designation d in orgID, or "" when
// nobody holds it.
func (s *Service) Designated(ctx context.Context, orgID id.OrgID, d models.Designation) (string, error) {
	m, err := s.store.FindDesignated(ctx, orgID, d)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil
		}
		return "", translate(err, "")
	}
	return m.UIN, nil
}

func translate(err error, notFound string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFound)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeTransient, "committee store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "committee store failure")
	}
}

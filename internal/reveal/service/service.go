// Package service implements the break-glass identity reveal. Two committee
// members other than the requester must approve, and a separate execute call
// retrieves the secret so the person who pulls the trigger is recorded
// individually.
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

	"safeharbour/internal/reveal/models"
	id "safeharbour/pkg/domain"
	dErrors "safeharbour/pkg/domain-errors"
	audit "safeharbour/pkg/platform/audit"
	"safeharbour/pkg/platform/sentinel"
	"safeharbour/pkg/requestcontext"
)

var tracer = otel.Tracer("safeharbour/reveal")

type Store interface {
	// Create returns sentinel.ErrConflict when the subject already has a
	// non-executed request.
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, requestID id.RevealID) (*models.Request, error)
	InsertApproval(ctx context.Context, a *models.Approval) error
	ListApprovals(ctx context.Context, requestID id.RevealID) ([]*models.Approval, error)
	MarkApproved(ctx context.Context, requestID id.RevealID, at time.Time) (bool, error)
	MarkExecuted(ctx context.Context, requestID id.RevealID, executorID, secret string, at time.Time) (bool, error)
}

// CaseParties resolves the reporter of a case.
type CaseParties interface {
	VictimOf(ctx context.Context, caseID id.CaseID) (string, error)
}

// Vault returns the opaque secret reference behind a UIN.
type Vault interface {
	RetrieveSecret(ctx context.Context, uin string) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store           Store
	cases           CaseParties
	vault           Vault
	minReasonLength int
	logger          *slog.Logger
	auditPublisher  AuditPublisher
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

func WithMinReasonLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minReasonLength = n
		}
	}
}

func New(store Store, cases CaseParties, vault Vault, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("reveal store is required")
	}
	if cases == nil || vault == nil {
		return nil, errors.New("case parties and vault are required")
	}
	s := &Service{
		store:           store,
		cases:           cases,
		vault:           vault,
		minReasonLength: models.DefaultMinReasonLength,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initiate opens a reveal request. The requester's own approval is never
// recorded.
func (s *Service) Initiate(ctx context.Context, subject id.CaseID, requesterID string, requesterRole id.Role, reason string) (*models.Request, error) {
	ctx, span := tracer.Start(ctx, "reveal.initiate")
	defer span.End()

	if subject.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "subject id is required")
	}
	if requesterID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "requester is required")
	}
	if !requesterRole.IsCommittee() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only committee members may request a reveal")
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < s.minReasonLength {
		return nil, dErrors.New(dErrors.CodeValidation,
			"reason must be at least "+strconv.Itoa(s.minReasonLength)+" characters")
	}
	if _, err := s.cases.VictimOf(ctx, subject); err != nil {
		return nil, err
	}

	req := &models.Request{
		ID:                id.NewRevealID(),
		SubjectID:         subject,
		RequesterID:       requesterID,
		Reason:            reason,
		Status:            models.StatusPending,
		RequiredApprovals: models.RequiredApprovals,
		CreatedAt:         requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, req); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an open reveal request already exists for this case")
		}
		return nil, translate(err)
	}

	ev := audit.New(audit.EventRevealRequested, subject.String(), requesterID)
	ev.RequestID = req.ID.String()
	ev.Reason = reason
	if err := s.emit(ctx, ev); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "reveal requested", "request_id", req.ID, "subject_id", subject)
	return req, nil
}

// Approve records one approval and moves the request to approved once two
// distinct non-requester approvals exist.
func (s *Service) Approve(ctx context.Context, requestID id.RevealID, approverID string, approverRole id.Role) (*models.ApproveResult, error) {
	ctx, span := tracer.Start(ctx, "reveal.approve")
	defer span.End()

	if approverID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "approver is required")
	}
	req, err := s.store.FindByID(ctx, requestID)
	if err != nil {
		return nil, translate(err)
	}
	if approverID == req.RequesterID {
		s.logger.WarnContext(ctx, "reveal requester attempted to approve own request",
			"request_id", req.ID,
			"actor", approverID,
		)
		ev := audit.New(audit.EventRevealSelfVote, req.SubjectID.String(), approverID)
		ev.RequestID = req.ID.String()
		_ = s.emit(ctx, ev)
		return nil, dErrors.New(dErrors.CodeConflict, "self-vote: the requester cannot approve their own reveal")
	}
	if !approverRole.IsCommittee() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only committee members may approve a reveal")
	}
	if req.Status != models.StatusPending {
		return nil, dErrors.New(dErrors.CodeConflict, "reveal request is no longer pending")
	}

	a := &models.Approval{
		RequestID:    req.ID,
		ApproverID:   approverID,
		ApproverRole: approverRole,
		CastAt:       requestcontext.Now(ctx),
	}
	if err := s.store.InsertApproval(ctx, a); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "approver has already approved this reveal")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeConflict, "reveal request is no longer pending")
		}
		return nil, translate(err)
	}
	ev := audit.New(audit.EventRevealApproved, req.SubjectID.String(), approverID)
	ev.RequestID = req.ID.String()
	ev.Metadata = map[string]string{"role": string(approverRole)}
	if err := s.emit(ctx, ev); err != nil {
		return nil, err
	}

	approvals, err := s.store.ListApprovals(ctx, req.ID)
	if err != nil {
		return nil, translate(err)
	}
	result := &models.ApproveResult{ApprovalsCount: len(approvals), Status: models.StatusPending}
	if len(approvals) < req.RequiredApprovals {
		return result, nil
	}

	result.QuorumMet = true
	won, err := s.store.MarkApproved(ctx, req.ID, requestcontext.Now(ctx))
	if err != nil {
		return nil, translate(err)
	}
	result.Status = models.StatusApproved
	if won {
		span.SetAttributes(attribute.Bool("reveal.quorum_reached", true))
		ev := audit.New(audit.EventRevealQuorum, req.SubjectID.String(), approverID)
		ev.RequestID = req.ID.String()
		ev.Metadata = map[string]string{"approvers": strings.Join(models.ApproverIDs(approvals), ",")}
		if err := s.emit(ctx, ev); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Execute retrieves the reporter's secret reference for an approved request
// and marks it executed. A request can be executed once.
func (s *Service) Execute(ctx context.Context, requestID id.RevealID, executorID string, executorRole id.Role) (*models.ExecuteResult, error) {
	ctx, span := tracer.Start(ctx, "reveal.execute")
	defer span.End()

	if executorID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "executor is required")
	}
	if !executorRole.IsCommittee() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only committee members may execute a reveal")
	}
	req, err := s.store.FindByID(ctx, requestID)
	if err != nil {
		return nil, translate(err)
	}
	switch req.Status {
	case models.StatusExecuted:
		return nil, dErrors.New(dErrors.CodeConflict, "reveal request has already been executed")
	case models.StatusPending:
		return nil, dErrors.New(dErrors.CodeNotFound, "no approved reveal request")
	}

	victim, err := s.cases.VictimOf(ctx, req.SubjectID)
	if err != nil {
		return nil, err
	}
	secret, err := s.vault.RetrieveSecret(ctx, victim)
	if err != nil {
		return nil, err
	}
	approvals, err := s.store.ListApprovals(ctx, req.ID)
	if err != nil {
		return nil, translate(err)
	}
	approvers := models.ApproverIDs(approvals)

	won, err := s.store.MarkExecuted(ctx, req.ID, executorID, secret, requestcontext.Now(ctx))
	if err != nil {
		return nil, translate(err)
	}
	if !won {
		return nil, dErrors.New(dErrors.CodeConflict, "reveal request has already been executed")
	}

	ev := audit.New(audit.EventRevealExecuted, req.SubjectID.String(), executorID)
	ev.RequestID = req.ID.String()
	ev.Reason = req.Reason
	ev.Metadata = map[string]string{
		"requester": req.RequesterID,
		"approvers": strings.Join(approvers, ","),
		"executor":  executorID,
	}
	if err := s.emit(ctx, ev); err != nil {
		return nil, err
	}
	s.logger.WarnContext(ctx, "identity reveal executed",
		"request_id", req.ID,
		"subject_id", req.SubjectID,
		"executor", executorID,
	)
	return &models.ExecuteResult{SecretReference: secret, Approvers: approvers}, nil
}

// Get returns a request without its secret.
func (s *Service) Get(ctx context.Context, requestID id.RevealID) (*models.Request, error) {
	req, err := s.store.FindByID(ctx, requestID)
	if err != nil {
		return nil, translate(err)
	}
	req.ExecutedSecret = ""
	return req, nil
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

func translate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "reveal request not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeTransient, "reveal store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "reveal store failure")
	}
}

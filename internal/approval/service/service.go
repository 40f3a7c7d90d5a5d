// Package service implements quorum approval of committee actions. A request
// becomes executed exactly once: the pending to executed transition is a
// conditional store update and only its winner runs the executor.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"safeharbour/internal/approval/metrics"
	"safeharbour/internal/approval/models"
	id "safeharbour/pkg/domain"
	dErrors "safeharbour/pkg/domain-errors"
	audit "safeharbour/pkg/platform/audit"
	"safeharbour/pkg/platform/sentinel"
	txcontext "safeharbour/pkg/platform/tx"
	"safeharbour/pkg/requestcontext"
)

var tracer = otel.Tracer("safeharbour/approval")

type Store interface {
	// CreateWithVote inserts a pending request and its initiator's vote
	// atomically. sentinel.ErrConflict means a pending request already exists
	// for the subject and action.
	CreateWithVote(ctx context.Context, req *models.Request, vote *models.Vote) error
	FindByID(ctx context.Context, requestID id.ApprovalID) (*models.Request, error)
	// InsertVote returns sentinel.ErrConflict for a repeat voter and
	// sentinel.ErrInvalidState when the request was rejected. Votes on an
	// executed request are kept so the tally counts every final voter.
	InsertVote(ctx context.Context, vote *models.Vote) error
	ListVotes(ctx context.Context, requestID id.ApprovalID) ([]*models.Vote, error)
	// TransitionIfPending moves a pending request to `to` and reports whether
	// this caller made the change.
	TransitionIfPending(ctx context.Context, requestID id.ApprovalID, to models.Status, at time.Time) (bool, error)
	// RevertToPending compensates a won transition whose executor failed.
	RevertToPending(ctx context.Context, requestID id.ApprovalID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Executor performs the gated action once quorum is reached.
type Executor interface {
	Execute(ctx context.Context, req *models.Request) error
}

// ExecutorFunc adapts a case mutation to Executor.
type ExecutorFunc func(ctx context.Context, subject id.CaseID) error

func (f ExecutorFunc) Execute(ctx context.Context, req *models.Request) error {
	return f(ctx, req.SubjectID)
}

// Executors binds each action type to its side effect.
type Executors struct {
	CloseCase     Executor
	InterimRelief Executor
}

func (e Executors) For(action models.ActionType) (Executor, bool) {
	switch action {
	case models.ActionCloseCase:
		return e.CloseCase, e.CloseCase != nil
	case models.ActionInterimRelief:
		return e.InterimRelief, e.InterimRelief != nil
	default:
		return nil, false
	}
}

type Service struct {
	store          Store
	executors      Executors
	tx             txcontext.Runner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
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

// WithTxRunner makes the transition and the executor share a transaction.
// Without it the store's RevertToPending compensates failed executions.
func WithTxRunner(runner txcontext.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, executors Executors, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("approval store is required")
	}
	if _, ok := executors.For(models.ActionCloseCase); !ok {
		return nil, errors.New("close_case executor is required")
	}
	if _, ok := executors.For(models.ActionInterimRelief); !ok {
		return nil, errors.New("interim_relief executor is required")
	}
	s := &Service{
		store:     store,
		executors: executors,
		tx:        txcontext.Passthrough{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initiate opens a pending request with the initiator's approving vote.
func (s *Service) Initiate(ctx context.Context, subject id.CaseID, action models.ActionType, initiatorID string, initiatorRole id.Role) (*models.InitiateResult, error) {
	ctx, span := tracer.Start(ctx, "approval.initiate")
	defer span.End()
	span.SetAttributes(attribute.String("approval.action", string(action)))

	policy, ok := action.Policy()
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown action type")
	}
	if subject.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "subject id is required")
	}
	if initiatorID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "initiator is required")
	}
	if !initiatorRole.IsCommittee() {
		s.denied(ctx, subject, initiatorID, "initiate "+string(action))
		return nil, dErrors.New(dErrors.CodeForbidden, "only committee members may initiate approvals")
	}

	now := requestcontext.Now(ctx)
	req := &models.Request{
		ID:                 id.NewApprovalID(),
		SubjectID:          subject,
		ActionType:         action,
		Status:             models.StatusPending,
		RequiredApprovals:  policy.RequiredApprovals,
		RequiresPrivileged: policy.RequiresPrivileged,
		InitiatorID:        initiatorID,
		CreatedAt:          now,
	}
	vote := &models.Vote{
		RequestID: req.ID,
		VoterID:   initiatorID,
		VoterRole: initiatorRole,
		Decision:  models.DecisionApprove,
		CastAt:    now,
	}

	if err := s.store.CreateWithVote(ctx, req, vote); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a pending request already exists for this case and action")
		}
		return nil, translate(err)
	}
	s.metrics.IncrementVote(string(action), string(models.DecisionApprove))

	ev := audit.New(audit.EventApprovalInitiated, subject.String(), initiatorID)
	ev.RequestID = req.ID.String()
	ev.Metadata = map[string]string{
		"action_type": string(action),
		"role":        string(initiatorRole),
	}
	if err := s.emit(ctx, ev); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "approval initiated",
		"request_id", req.ID,
		"subject_id", subject,
		"action_type", action,
	)

	tally := models.CountVotes([]*models.Vote{vote})
	if tally.QuorumMet(policy) {
		if _, err := s.execute(ctx, req, tally); err != nil {
			return nil, err
		}
	}
	return &models.InitiateResult{Request: req, Tally: tally, Required: policy.RequiredApprovals}, nil
}

// VoteRequest is one committee member's decision on a pending request.
type VoteRequest struct {
	RequestID id.ApprovalID
	VoterID   string
	VoterRole id.Role
	Decision  models.Decision
}

// CastVote records a vote and, when it completes the quorum, executes the
// action. Concurrent final votes all report quorum_met and are all counted;
// only one executes. A vote that reaches an already executed request is one
// of those final votes.
func (s *Service) CastVote(ctx context.Context, in VoteRequest) (*models.VoteResult, error) {
	ctx, span := tracer.Start(ctx, "approval.cast_vote")
	defer span.End()

	if in.VoterID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "voter is required")
	}
	if _, err := models.ParseDecision(string(in.Decision)); err != nil {
		return nil, err
	}

	req, err := s.store.FindByID(ctx, in.RequestID)
	if err != nil {
		return nil, translate(err)
	}
	span.SetAttributes(attribute.String("approval.action", string(req.ActionType)))
	if req.Status == models.StatusRejected {
		return nil, dErrors.New(dErrors.CodeConflict, "approval request is no longer pending")
	}
	if !in.VoterRole.IsCommittee() {
		s.denied(ctx, req.SubjectID, in.VoterID, "vote on "+string(req.ActionType))
		return nil, dErrors.New(dErrors.CodeForbidden, "only committee members may vote")
	}

	vote := &models.Vote{
		RequestID: req.ID,
		VoterID:   in.VoterID,
		VoterRole: in.VoterRole,
		Decision:  in.Decision,
		CastAt:    requestcontext.Now(ctx),
	}
	if err := s.store.InsertVote(ctx, vote); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "voter has already voted on this request")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeConflict, "approval request is no longer pending")
		}
		return nil, translate(err)
	}
	s.metrics.IncrementVote(string(req.ActionType), string(in.Decision))

	ev := audit.New(audit.EventApprovalVoteCast, req.SubjectID.String(), in.VoterID)
	ev.RequestID = req.ID.String()
	ev.Decision = string(in.Decision)
	ev.Metadata = map[string]string{
		"action_type": string(req.ActionType),
		"role":        string(in.VoterRole),
	}
	if err := s.emit(ctx, ev); err != nil {
		return nil, err
	}

	votes, err := s.store.ListVotes(ctx, req.ID)
	if err != nil {
		return nil, translate(err)
	}
	tally := models.CountVotes(votes)
	policy := req.Policy()

	switch {
	case req.Status == models.StatusExecuted:
		return &models.VoteResult{QuorumMet: true, Tally: tally, Status: models.StatusExecuted}, nil
	case tally.QuorumMet(policy):
		status, err := s.execute(ctx, req, tally)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		return &models.VoteResult{QuorumMet: status == models.StatusExecuted, Tally: tally, Status: status}, nil
	case tally.Rejected(policy):
		status, err := s.reject(ctx, req, tally)
		if err != nil {
			return nil, err
		}
		return &models.VoteResult{Tally: tally, Status: status}, nil
	default:
		return &models.VoteResult{Tally: tally, Status: models.StatusPending}, nil
	}
}

// Get returns a request with its votes and current tally.
func (s *Service) Get(ctx context.Context, requestID id.ApprovalID) (*models.Detail, error) {
	req, err := s.store.FindByID(ctx, requestID)
	if err != nil {
		return nil, translate(err)
	}
	votes, err := s.store.ListVotes(ctx, requestID)
	if err != nil {
		return nil, translate(err)
	}
	return &models.Detail{Request: req, Votes: votes, Tally: models.CountVotes(votes)}, nil
}

// execute races for the pending to executed transition. The winner records
// the execution and then runs the executor in the same transaction, so a
// failed audit write never leaves the action applied. Work outside the
// transaction runs after commit. Losers report the status they observe.
func (s *Service) execute(ctx context.Context, req *models.Request, tally models.Tally) (models.Status, error) {
	executor, ok := s.executors.For(req.ActionType)
	if !ok {
		return "", dErrors.New(dErrors.CodeInternal, "no executor for action type")
	}

	start := time.Now()
	now := requestcontext.Now(ctx)
	var won bool
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		won, err = s.store.TransitionIfPending(ctx, req.ID, models.StatusExecuted, now)
		if err != nil {
			return translate(err)
		}
		if !won {
			return nil
		}
		ev := audit.New(audit.EventApprovalExecuted, req.SubjectID.String(), requestcontext.ActorUIN(ctx))
		ev.RequestID = req.ID.String()
		ev.Metadata = map[string]string{
			"action_type": string(req.ActionType),
			"approvals":   strconv.Itoa(tally.Approvals),
		}
		if err := s.emit(ctx, ev); err != nil {
			return err
		}
		return executor.Execute(ctx, req)
	})
	s.metrics.ObserveExecuteLatency(time.Since(start))

	if err != nil {
		if won {
			s.compensate(ctx, req, err)
		}
		return "", err
	}
	if !won {
		current, err := s.store.FindByID(ctx, req.ID)
		if err != nil {
			return "", translate(err)
		}
		return current.Status, nil
	}

	if c, ok := executor.(afterCommitter); ok {
		c.AfterCommit(ctx, req)
	}
	s.metrics.IncrementOutcome(string(req.ActionType), string(models.StatusExecuted))
	s.logger.InfoContext(ctx, "approval executed",
		"request_id", req.ID,
		"subject_id", req.SubjectID,
		"action_type", req.ActionType,
		"approvals", tally.Approvals,
	)
	return models.StatusExecuted, nil
}

func (s *Service) compensate(ctx context.Context, req *models.Request, cause error) {
	s.metrics.IncrementExecutionFailure(string(req.ActionType))
	if err := s.store.RevertToPending(ctx, req.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revert approval after executor failure",
			"request_id", req.ID,
			"error", err,
		)
	}
	s.logger.ErrorContext(ctx, "approval executor failed",
		"request_id", req.ID,
		"action_type", req.ActionType,
		"error", cause,
	)
	ev := audit.New(audit.EventApprovalExecutionFailed, req.SubjectID.String(), requestcontext.ActorUIN(ctx))
	ev.RequestID = req.ID.String()
	ev.Reason = dErrors.Message(cause)
	_ = s.emit(ctx, ev)
}

func (s *Service) reject(ctx context.Context, req *models.Request, tally models.Tally) (models.Status, error) {
	won, err := s.store.TransitionIfPending(ctx, req.ID, models.StatusRejected, requestcontext.Now(ctx))
	if err != nil {
		return "", translate(err)
	}
	if !won {
		current, err := s.store.FindByID(ctx, req.ID)
		if err != nil {
			return "", translate(err)
		}
		return current.Status, nil
	}
	s.metrics.IncrementOutcome(string(req.ActionType), string(models.StatusRejected))
	ev := audit.New(audit.EventApprovalRejected, req.SubjectID.String(), requestcontext.ActorUIN(ctx))
	ev.RequestID = req.ID.String()
	ev.Metadata = map[string]string{
		"action_type": string(req.ActionType),
		"rejections":  strconv.Itoa(tally.Rejections),
	}
	if err := s.emit(ctx, ev); err != nil {
		return "", err
	}
	return models.StatusRejected, nil
}

func (s *Service) denied(ctx context.Context, subject id.CaseID, actor, attempted string) {
	s.logger.WarnContext(ctx, "non-committee actor attempted approval action",
		"subject_id", subject,
		"actor", actor,
	)
	ev := audit.New(audit.EventCommitteeActionDenied, subject.String(), actor)
	ev.Reason = attempted
	_ = s.emit(ctx, ev)
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
		return dErrors.New(dErrors.CodeNotFound, "approval request not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeTransient, "approval store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "approval store failure")
	}
}

package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	approvalmodels "safeharbour/internal/approval/models"
	approvalservice "safeharbour/internal/approval/service"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/httputil"
	"safeharbour/pkg/requestcontext"
)

type ApprovalService interface {
	Initiate(ctx context.Context, subject id.CaseID, action approvalmodels.ActionType, initiatorID string, initiatorRole id.Role) (*approvalmodels.InitiateResult, error)
	CastVote(ctx context.Context, in approvalservice.VoteRequest) (*approvalmodels.VoteResult, error)
	Get(ctx context.Context, requestID id.ApprovalID) (*approvalmodels.Detail, error)
}

type ApprovalHandler struct {
	approvals ApprovalService
	roles     RoleResolver
	logger    *slog.Logger
}

func NewApprovalHandler(approvals ApprovalService, roles RoleResolver, logger *slog.Logger) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals, roles: roles, logger: logger}
}

func (h *ApprovalHandler) Register(r chi.Router) {
	r.Post("/cases/{caseID}/approvals", h.handleInitiate)
	r.Post("/approvals/{requestID}/votes", h.handleCastVote)
	r.Get("/approvals/{requestID}", h.handleGet)
}

type initiateApprovalRequest struct {
	ActionType string `json:"action_type"`
}

type castVoteRequest struct {
	Decision string `json:"decision"`
}

func (h *ApprovalHandler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := caseIDParam(r)
	if err != nil {
		writeFailure(ctx, h.logger, w, "invalid case id", err)
		return
	}
	var req initiateApprovalRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeFailure(ctx, h.logger, w, "invalid initiate approval request", err)
		return
	}

	actor := requestcontext.ActorUIN(ctx)
	role, err := h.roles.CommitteeRole(ctx, actor, caseID)
	if err != nil {
		writeFailure(ctx, h.logger, w, "approval initiation denied", err)
		return
	}

	res, err := h.approvals.Initiate(ctx, caseID, approvalmodels.ActionType(req.ActionType), actor, role)
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to initiate approval", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *ApprovalHandler) handleCastVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseApprovalID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeFailure(ctx, h.logger, w, "invalid approval request id", err)
		return
	}
	var req castVoteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeFailure(ctx, h.logger, w, "invalid vote request", err)
		return
	}

	detail, err := h.approvals.Get(ctx, requestID)
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to load approval request", err)
		return
	}
	actor := requestcontext.ActorUIN(ctx)
	role, err := h.roles.CommitteeRole(ctx, actor, detail.Request.SubjectID)
	if err != nil {
		writeFailure(ctx, h.logger, w, "vote denied", err)
		return
	}

	res, err := h.approvals.CastVote(ctx, approvalservice.VoteRequest{
		RequestID: requestID,
		VoterID:   actor,
		VoterRole: role,
		Decision:  approvalmodels.Decision(req.Decision),
	})
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to cast vote", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *ApprovalHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseApprovalID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeFailure(ctx, h.logger, w, "invalid approval request id", err)
		return
	}
	detail, err := h.approvals.Get(ctx, requestID)
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to load approval request", err)
		return
	}
	if _, err := h.roles.CommitteeRole(ctx, requestcontext.ActorUIN(ctx), detail.Request.SubjectID); err != nil {
		writeFailure(ctx, h.logger, w, "approval read denied", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

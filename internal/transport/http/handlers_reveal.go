package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	revealmodels "safeharbour/internal/reveal/models"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/httputil"
	"safeharbour/pkg/requestcontext"
)

type RevealService interface {
	Initiate(ctx context.Context, subject id.CaseID, requesterID string, requesterRole id.Role, reason string) (*revealmodels.Request, error)
	Approve(ctx context.Context, requestID id.RevealID, approverID string, approverRole id.Role) (*revealmodels.ApproveResult, error)
	Execute(ctx context.Context, requestID id.RevealID, executorID string, executorRole id.Role) (*revealmodels.ExecuteResult, error)
	Get(ctx context.Context, requestID id.RevealID) (*revealmodels.Request, error)
}

// RevealHandler serves the break-glass identity reveal. Every route
// re-resolves the actor's role against the subject case.
type RevealHandler struct {
	reveals RevealService
	roles   RoleResolver
	logger  *slog.Logger
}

func NewRevealHandler(reveals RevealService, roles RoleResolver, logger *slog.Logger) *RevealHandler {
	return &RevealHandler{reveals: reveals, roles: roles, logger: logger}
}

func (h *RevealHandler) Register(r chi.Router) {
	r.Post("/cases/{caseID}/reveals", h.handleInitiate)
	r.Get("/reveals/{requestID}", h.handleGet)
	r.Post("/reveals/{requestID}/approvals", h.handleApprove)
	r.Post("/reveals/{requestID}/execute", h.handleExecute)
}

type initiateRevealRequest struct {
	Reason string `json:"reason"`
}

func (h *RevealHandler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := caseIDParam(r)
	if err != nil {
		writeFailure(ctx, h.logger, w, "invalid case id", err)
		return
	}
	var req initiateRevealRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeFailure(ctx, h.logger, w, "invalid reveal request", err)
		return
	}

	actor := requestcontext.ActorUIN(ctx)
	role, err := h.roles.CommitteeRole(ctx, actor, caseID)
	if err != nil {
		writeFailure(ctx, h.logger, w, "reveal initiation denied", err)
		return
	}
	rev, err := h.reveals.Initiate(ctx, caseID, actor, role, req.Reason)
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to initiate reveal", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rev)
}

func (h *RevealHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	rev, _, ok := h.load(w, r, "reveal read denied")
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rev)
}

func (h *RevealHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rev, role, ok := h.load(w, r, "reveal approval denied")
	if !ok {
		return
	}
	res, err := h.reveals.Approve(ctx, rev.ID, requestcontext.ActorUIN(ctx), role)
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to approve reveal", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *RevealHandler) handleExecute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rev, role, ok := h.load(w, r, "reveal execution denied")
	if !ok {
		return
	}
	res, err := h.reveals.Execute(ctx, rev.ID, requestcontext.ActorUIN(ctx), role)
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to execute reveal", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// load reads the reveal named in the path and the actor's role on its case.
// It writes the error response itself and reports whether to continue.
func (h *RevealHandler) load(w http.ResponseWriter, r *http.Request, denied string) (*revealmodels.Request, id.Role, bool) {
	ctx := r.Context()
	requestID, err := id.ParseRevealID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeFailure(ctx, h.logger, w, "invalid reveal request id", err)
		return nil, "", false
	}
	rev, err := h.reveals.Get(ctx, requestID)
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to load reveal request", err)
		return nil, "", false
	}
	role, err := h.roles.CommitteeRole(ctx, requestcontext.ActorUIN(ctx), rev.SubjectID)
	if err != nil {
		writeFailure(ctx, h.logger, w, denied, err)
		return nil, "", false
	}
	return rev, role, true
}

package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	casemodels "safeharbour/internal/cases/models"
	casesservice "safeharbour/internal/cases/service"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/httputil"
	"safeharbour/pkg/requestcontext"
)

type CaseService interface {
	Submit(ctx context.Context, req casesservice.SubmitRequest) (*casesservice.SubmitResult, error)
	Get(ctx context.Context, actorUIN string, caseID id.CaseID) (*casemodels.Case, error)
	StartInvestigation(ctx context.Context, actorUIN string, caseID id.CaseID) (*casemodels.Case, error)
}

type CasesHandler struct {
	cases  CaseService
	logger *slog.Logger
}

func NewCasesHandler(cases CaseService, logger *slog.Logger) *CasesHandler {
	return &CasesHandler{cases: cases, logger: logger}
}

func (h *CasesHandler) Register(r chi.Router) {
	r.Post("/cases", h.handleSubmit)
	r.Get("/cases/{caseID}", h.handleGet)
	r.Post("/cases/{caseID}/investigation", h.handleStartInvestigation)
}

type submitCaseRequest struct {
	OrgID      id.OrgID `json:"org_id"`
	SubjectUIN string   `json:"subject_uin"`
}

type submitCaseResponse struct {
	Case *casemodels.Case `json:"case"`
	// UnscheduledAlerts lists reminders that were recorded but not queued.
	UnscheduledAlerts []string `json:"unscheduled_alerts,omitempty"`
}

// handleSubmit files a case on behalf of the authenticated reporter.
func (h *CasesHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req submitCaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeFailure(ctx, h.logger, w, "invalid submit case request", err)
		return
	}

	res, err := h.cases.Submit(ctx, casesservice.SubmitRequest{
		OrgID:      req.OrgID,
		VictimUIN:  requestcontext.ActorUIN(ctx),
		SubjectUIN: req.SubjectUIN,
	})
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to submit case", err)
		return
	}

	resp := submitCaseResponse{Case: res.Case}
	if res.Schedule != nil {
		for _, f := range res.Schedule.Failures {
			resp.UnscheduledAlerts = append(resp.UnscheduledAlerts, f.JobKey)
		}
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *CasesHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := caseIDParam(r)
	if err != nil {
		writeFailure(ctx, h.logger, w, "invalid case id", err)
		return
	}
	c, err := h.cases.Get(ctx, requestcontext.ActorUIN(ctx), caseID)
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to get case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *CasesHandler) handleStartInvestigation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := caseIDParam(r)
	if err != nil {
		writeFailure(ctx, h.logger, w, "invalid case id", err)
		return
	}
	c, err := h.cases.StartInvestigation(ctx, requestcontext.ActorUIN(ctx), caseID)
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to start investigation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

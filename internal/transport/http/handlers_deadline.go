package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	deadlinemodels "safeharbour/internal/deadline/models"
	deadlineservice "safeharbour/internal/deadline/service"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/httputil"
	"safeharbour/pkg/requestcontext"
)

type DeadlineService interface {
	Deadline(ctx context.Context, subject id.CaseID) (*deadlinemodels.Record, error)
	Extend(ctx context.Context, req deadlineservice.ExtendRequest) (*deadlinemodels.Record, error)
	ListAlerts(ctx context.Context, filter deadlinemodels.AlertFilter) ([]*deadlinemodels.Alert, error)
	Alert(ctx context.Context, alertID id.AlertID) (*deadlinemodels.Alert, error)
	Acknowledge(ctx context.Context, alertID id.AlertID, actor string) (*deadlinemodels.Alert, error)
}

type DeadlineHandler struct {
	deadlines DeadlineService
	roles     RoleResolver
	members   Members
	logger    *slog.Logger
}

func NewDeadlineHandler(deadlines DeadlineService, roles RoleResolver, members Members, logger *slog.Logger) *DeadlineHandler {
	return &DeadlineHandler{deadlines: deadlines, roles: roles, members: members, logger: logger}
}

func (h *DeadlineHandler) Register(r chi.Router) {
	r.Get("/cases/{caseID}/deadline", h.handleGetDeadline)
	r.Post("/cases/{caseID}/deadline/extensions", h.handleExtend)
	r.Get("/cases/{caseID}/alerts", h.handleListCaseAlerts)
	r.Get("/orgs/{orgID}/alerts", h.handleListOrgAlerts)
	r.Post("/alerts/{alertID}/ack", h.handleAcknowledge)
}

type extendDeadlineRequest struct {
	Reason    string `json:"reason"`
	ExtraDays int    `json:"extra_days"`
}

type alertsResponse struct {
	Alerts []*deadlinemodels.Alert `json:"alerts"`
}

// caseScope parses the case id and checks the actor sits on its committee.
func (h *DeadlineHandler) caseScope(w http.ResponseWriter, r *http.Request) (id.CaseID, bool) {
	ctx := r.Context()
	caseID, err := caseIDParam(r)
	if err != nil {
		writeFailure(ctx, h.logger, w, "invalid case id", err)
		return id.CaseID{}, false
	}
	if _, err := h.roles.CommitteeRole(ctx, requestcontext.ActorUIN(ctx), caseID); err != nil {
		writeFailure(ctx, h.logger, w, "deadline access denied", err)
		return id.CaseID{}, false
	}
	return caseID, true
}

func (h *DeadlineHandler) handleGetDeadline(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseScope(w, r)
	if !ok {
		return
	}
	rec, err := h.deadlines.Deadline(r.Context(), caseID)
	if err != nil {
		writeFailure(r.Context(), h.logger, w, "failed to load deadline", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *DeadlineHandler) handleExtend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseScope(w, r)
	if !ok {
		return
	}
	var req extendDeadlineRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeFailure(ctx, h.logger, w, "invalid extension request", err)
		return
	}
	rec, err := h.deadlines.Extend(ctx, deadlineservice.ExtendRequest{
		SubjectID: caseID,
		ActorID:   requestcontext.ActorUIN(ctx),
		Reason:    req.Reason,
		ExtraDays: req.ExtraDays,
	})
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to extend deadline", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *DeadlineHandler) handleListCaseAlerts(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseScope(w, r)
	if !ok {
		return
	}
	filter := alertFilter(r)
	filter.SubjectID = &caseID
	h.listAlerts(w, r, filter)
}

func (h *DeadlineHandler) handleListOrgAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, err := orgIDParam(r)
	if err != nil {
		writeFailure(ctx, h.logger, w, "invalid organization id", err)
		return
	}
	if err := requireOrgMember(ctx, h.members, requestcontext.ActorUIN(ctx), orgID); err != nil {
		writeFailure(ctx, h.logger, w, "alert listing denied", err)
		return
	}
	filter := alertFilter(r)
	filter.OrgID = &orgID
	h.listAlerts(w, r, filter)
}

func (h *DeadlineHandler) listAlerts(w http.ResponseWriter, r *http.Request, filter deadlinemodels.AlertFilter) {
	alerts, err := h.deadlines.ListAlerts(r.Context(), filter)
	if err != nil {
		writeFailure(r.Context(), h.logger, w, "failed to list alerts", err)
		return
	}
	if alerts == nil {
		alerts = []*deadlinemodels.Alert{}
	}
	httputil.WriteJSON(w, http.StatusOK, alertsResponse{Alerts: alerts})
}

func (h *DeadlineHandler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	alertID, err := id.ParseAlertID(chi.URLParam(r, "alertID"))
	if err != nil {
		writeFailure(ctx, h.logger, w, "invalid alert id", err)
		return
	}
	alert, err := h.deadlines.Alert(ctx, alertID)
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to load alert", err)
		return
	}
	actor := requestcontext.ActorUIN(ctx)
	if _, err := h.roles.CommitteeRole(ctx, actor, alert.SubjectID); err != nil {
		writeFailure(ctx, h.logger, w, "alert acknowledgement denied", err)
		return
	}
	acked, err := h.deadlines.Acknowledge(ctx, alertID, actor)
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to acknowledge alert", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acked)
}

func alertFilter(r *http.Request) deadlinemodels.AlertFilter {
	q := r.URL.Query()
	return deadlinemodels.AlertFilter{
		Kind:   deadlinemodels.AlertKind(q.Get("kind")),
		Status: deadlinemodels.AlertStatus(q.Get("status")),
	}
}

package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	committeemodels "safeharbour/internal/committee/models"
	committeeservice "safeharbour/internal/committee/service"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/httputil"
	"safeharbour/pkg/requestcontext"
)

type CommitteeService interface {
	Members
	AddMember(ctx context.Context, actorUIN string, req committeeservice.AddMemberRequest) (*committeemodels.Member, error)
	List(ctx context.Context, orgID id.OrgID) ([]*committeemodels.Member, error)
}

type CommitteeHandler struct {
	committee CommitteeService
	logger    *slog.Logger
}

func NewCommitteeHandler(committee CommitteeService, logger *slog.Logger) *CommitteeHandler {
	return &CommitteeHandler{committee: committee, logger: logger}
}

func (h *CommitteeHandler) Register(r chi.Router) {
	r.Get("/orgs/{orgID}/committee", h.handleList)
	r.Put("/orgs/{orgID}/committee/{uin}", h.handleSeat)
}

type seatMemberRequest struct {
	Role         string   `json:"role"`
	Designations []string `json:"designations"`
}

type membersResponse struct {
	Members []*committeemodels.Member `json:"members"`
}

func (h *CommitteeHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, err := orgIDParam(r)
	if err != nil {
		writeFailure(ctx, h.logger, w, "invalid organization id", err)
		return
	}
	if err := requireOrgMember(ctx, h.committee, requestcontext.ActorUIN(ctx), orgID); err != nil {
		writeFailure(ctx, h.logger, w, "committee listing denied", err)
		return
	}
	members, err := h.committee.List(ctx, orgID)
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to list committee", err)
		return
	}
	if members == nil {
		members = []*committeemodels.Member{}
	}
	httputil.WriteJSON(w, http.StatusOK, membersResponse{Members: members})
}

// handleSeat seats or updates a member. The service checks that the actor
// presides over the same organization.
func (h *CommitteeHandler) handleSeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, err := orgIDParam(r)
	if err != nil {
		writeFailure(ctx, h.logger, w, "invalid organization id", err)
		return
	}
	var req seatMemberRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeFailure(ctx, h.logger, w, "invalid committee request", err)
		return
	}
	role, err := id.ParseRole(req.Role)
	if err != nil {
		writeFailure(ctx, h.logger, w, "invalid committee role", err)
		return
	}
	designations := make([]committeemodels.Designation, 0, len(req.Designations))
	for _, d := range req.Designations {
		designations = append(designations, committeemodels.Designation(d))
	}

	m, err := h.committee.AddMember(ctx, requestcontext.ActorUIN(ctx), committeeservice.AddMemberRequest{
		OrgID:        orgID,
		UIN:          chi.URLParam(r, "uin"),
		Role:         role,
		Designations: designations,
	})
	if err != nil {
		writeFailure(ctx, h.logger, w, "failed to seat committee member", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

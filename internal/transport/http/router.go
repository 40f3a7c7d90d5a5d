// Package httptransport exposes the committee, case, approval, reveal and
// deadline operations as JSON over HTTP. Handlers resolve the actor's
// committee role from the store and delegate everything else to services.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	committeemodels "safeharbour/internal/committee/models"
	"safeharbour/internal/platform/metrics"
	"safeharbour/internal/platform/middleware"
	id "safeharbour/pkg/domain"
	dErrors "safeharbour/pkg/domain-errors"
	"safeharbour/pkg/platform/httputil"
	"safeharbour/pkg/requestcontext"
)

// RoleResolver returns the actor's committee role for the organization that
// owns a case. Non-members get a forbidden error.
type RoleResolver interface {
	CommitteeRole(ctx context.Context, actorUIN string, caseID id.CaseID) (id.Role, error)
}

// Members looks up committee seats for org-scoped routes.
type Members interface {
	Member(ctx context.Context, uin string) (*committeemodels.Member, error)
}

// Registrar mounts a handler's routes on the authenticated router.
type Registrar interface {
	Register(r chi.Router)
}

type Config struct {
	Logger         *slog.Logger
	Tokens         middleware.TokenValidator
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Handlers       []Registrar
}

// NewRouter builds the public router. Every route except health and metrics
// requires a bearer token.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))
	r.Use(cfg.Metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireActor(cfg.Tokens, logger))
		for _, h := range cfg.Handlers {
			h.Register(r)
		}
	})
	return r
}

// writeFailure logs and renders a service error. Client errors log at warn,
// everything else at error.
func writeFailure(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, msg string, err error) {
	status := httputil.StatusFor(dErrors.CodeOf(err))
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func requireOrgMember(ctx context.Context, members Members, actorUIN string, orgID id.OrgID) error {
	m, err := members.Member(ctx, actorUIN)
	if err != nil {
		return err
	}
	if m.OrgID != orgID {
		return dErrors.New(dErrors.CodeForbidden, "actor is not on this organization's committee")
	}
	return nil
}

func caseIDParam(r *http.Request) (id.CaseID, error) {
	return id.ParseCaseID(chi.URLParam(r, "caseID"))
}

func orgIDParam(r *http.Request) (id.OrgID, error) {
	return id.ParseOrgID(chi.URLParam(r, "orgID"))
}

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "safeharbour/pkg/domain-errors"
	"safeharbour/pkg/platform/httputil"
	"safeharbour/pkg/requestcontext"
)

// TokenValidator resolves a bearer token to the actor's UIN.
type TokenValidator interface {
	ActorUIN(tokenString string) (string, error)
}

// RequireActor rejects requests without a valid bearer token and stores the
// actor UIN in the request context.
func RequireActor(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			uin, err := validator.ActorUIN(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActorUIN(ctx, uin)))
		})
	}
}

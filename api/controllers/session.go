package controllers

import (
	"context"
	"net/http"

	"github.com/roomezes/roomezes-backend/api/middleware"
	"github.com/roomezes/roomezes-backend/api/responses"
	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	"github.com/roomezes/roomezes-backend/pkg/errors"
	"github.com/roomezes/roomezes-backend/pkg/logger"
)

type sessionRevoker interface {
	SignOut(ctx context.Context, sc session.Context) error
}

// AuthLogout revokes the presented access token. Subscribers, checkout among them, are notified
// so in-flight work tied to the session is dropped.
func AuthLogout(manager sessionRevoker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, errors.New(errors.CodeInternal, "session manager unavailable"))
			return
		}

		sc := middleware.SessionFromContext(r.Context())
		if sc.IsZero() {
			responses.WriteError(r.Context(), logg, w, errors.New(errors.CodeUnauthorized, "missing session"))
			return
		}

		if err := manager.SignOut(r.Context(), sc); err != nil {
			responses.WriteError(r.Context(), logg, w, errors.Wrap(errors.CodeDependency, err, "revoke session"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/nutriagenda/libs/httpx"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/apperr"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

// writeAppError maps a domain error onto its status code. Internal failures
// are logged and answered with a generic message.
func writeAppError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"err", err,
		)
	}
	httpx.WriteError(w, kind.HTTPStatus(), apperr.PublicMessage(err))
}

func methodNotAllowed(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func requestActor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
	}
	return actor, ok
}

package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/nutriagenda/libs/auth"
	"github.com/md-rashed-zaman/nutriagenda/libs/httpx"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

const (
	HeaderUserID = "X-User-Id"
	HeaderRole   = "X-Role"
)

type actorKey struct{}

func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(model.Actor)
	return a, ok
}

func ContextWithActor(ctx context.Context, a model.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// RequireActor identifies the caller. With a JWT secret the Authorization
// bearer token is verified; without one the gateway headers are trusted.
// Requests with no identity get 401.
func RequireActor(jwtSecret string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := resolveActor(r, jwtSecret)
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}

func resolveActor(r *http.Request, jwtSecret string) (model.Actor, bool) {
	if jwtSecret != "" {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			return model.Actor{}, false
		}
		claims, err := auth.VerifyHS256(token, jwtSecret)
		if err != nil {
			return model.Actor{}, false
		}
		return model.Actor{UserID: claims.Subject, Role: model.Role(strings.ToLower(claims.Role))}, true
	}

	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	role := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderRole)))
	if userID == "" || role == "" {
		return model.Actor{}, false
	}
	return model.Actor{UserID: userID, Role: model.Role(role)}, true
}

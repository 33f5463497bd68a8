package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	httpcontext "github.com/avollmer/oauthd/internal/api/http/context"
	"github.com/avollmer/oauthd/internal/logger"
	"github.com/avollmer/oauthd/internal/model"
)

// Introspector reports the state of presented bearer tokens.
type Introspector interface {
	Introspect(ctx context.Context, token string) (model.Introspection, error)
}

// Authorizer checks whether a user holds a permission.
type Authorizer interface {
	Authorize(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error)
}

// Authenticate validates bearer tokens on the admin surface and injects
// the user ID into the request context.
type Authenticate struct {
	tokens Introspector
	rbac   Authorizer
	logger *logger.Logger
}

// NewAuthenticate creates an Authenticate middleware instance.
func NewAuthenticate(tokens Introspector, rbac Authorizer, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokens: tokens, rbac: rbac, logger: logger}
}

// RequireUser rejects requests without an active bearer token bound to a
// user.
func (m *Authenticate) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			unauthorized(w)
			return
		}

		info, err := m.tokens.Introspect(r.Context(), token)
		if err != nil {
			m.logger.Error("Authenticate: introspection failed", "error", err.Error())
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if !info.Active || info.UserID == uuid.Nil {
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(httpcontext.WithUserID(r.Context(), info.UserID)))
	})
}

// RequirePermission gates a route on the authenticated user holding the
// exact (resource, action) permission.
func (m *Authenticate) RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := httpcontext.UserID(r.Context())
			if !ok {
				unauthorized(w)
				return
			}

			allowed, err := m.rbac.Authorize(r.Context(), userID, resource, action)
			if err != nil {
				m.logger.Error("Authenticate: permission check failed",
					"user_id", userID,
					"resource", resource,
					"action", action,
					"error", err.Error())
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// Package router wires the HTTP endpoints to their handlers and
// middleware.
package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/avollmer/oauthd/internal/api/http/handler"
	"github.com/avollmer/oauthd/internal/api/http/middleware"
	"github.com/avollmer/oauthd/internal/logger"
)

// Pinger reports database reachability for the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router assembles the HTTP surface: public OAuth endpoints, discovery
// documents and the permission-gated admin API.
type Router struct {
	oauth        *handler.OAuth
	wellKnown    *handler.WellKnown
	admin        *handler.Admin
	authenticate *middleware.Authenticate
	db           Pinger
	logger       *logger.Logger
}

// New creates a Router instance.
func New(
	oauth *handler.OAuth,
	wellKnown *handler.WellKnown,
	admin *handler.Admin,
	authenticate *middleware.Authenticate,
	db Pinger,
	logger *logger.Logger,
) *Router {
	return &Router{
		oauth:        oauth,
		wellKnown:    wellKnown,
		admin:        admin,
		authenticate: authenticate,
		db:           db,
		logger:       logger,
	}
}

// Register builds the chi router with all routes and middleware.
func (r *Router) Register() chi.Router {
	mux := chi.NewRouter()

	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(middleware.RequestLogger(r.logger))
	mux.Use(chimiddleware.Recoverer)

	mux.Get("/healthz", r.handleHealthz)
	mux.Get("/readyz", r.handleReadyz)

	mux.Get("/.well-known/oauth-authorization-server", r.wellKnown.Discovery)
	mux.Get("/.well-known/jwks.json", r.wellKnown.JWKS)

	mux.Get("/authorize", r.oauth.Authorize)
	mux.Post("/consent", r.oauth.Consent)
	mux.Post("/token", r.oauth.Token)
	mux.Post("/introspect", r.oauth.Introspect)
	mux.Post("/revoke", r.oauth.Revoke)

	mux.Route("/admin", func(admin chi.Router) {
		admin.Use(r.authenticate.RequireUser)

		admin.With(r.authenticate.RequirePermission("rbac", "read")).
			Get("/roles", r.admin.ListRoles)
		admin.With(r.authenticate.RequirePermission("rbac", "read")).
			Get("/permissions", r.admin.ListPermissions)
		admin.With(r.authenticate.RequirePermission("rbac", "read")).
			Get("/users/{userID}/roles", r.admin.UserRoles)
		admin.With(r.authenticate.RequirePermission("rbac", "read")).
			Get("/users/{userID}/permissions", r.admin.UserPermissions)
		admin.With(r.authenticate.RequirePermission("rbac", "write")).
			Post("/users/{userID}/roles/{roleID}", r.admin.AssignRole)
		admin.With(r.authenticate.RequirePermission("rbac", "write")).
			Delete("/users/{userID}/roles/{roleID}", r.admin.RevokeRole)

		admin.With(r.authenticate.RequirePermission("tokens", "revoke")).
			Post("/users/{userID}/tokens/revoke", r.admin.RevokeUserTokens)

		admin.With(r.authenticate.RequirePermission("audit", "read")).
			Get("/audit", r.admin.QueryAudit)
		admin.With(r.authenticate.RequirePermission("audit", "export")).
			Post("/audit/export", r.admin.ExportAudit)

		admin.With(r.authenticate.RequirePermission("keys", "rotate")).
			Post("/keys/rotate", r.admin.RotateKey)
	})

	return mux
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Router) handleReadyz(w http.ResponseWriter, req *http.Request) {
	if err := r.db.Ping(req.Context()); err != nil {
		r.logger.Error("Router: readiness ping failed", "error", err.Error())
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

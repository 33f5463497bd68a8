package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpcontext "github.com/avollmer/oauthd/internal/api/http/context"
	"github.com/avollmer/oauthd/internal/keys"
	"github.com/avollmer/oauthd/internal/logger"
	"github.com/avollmer/oauthd/internal/model"
	"github.com/avollmer/oauthd/internal/service"
)

// Admin serves the administrative surface: role management, audit
// queries and exports, signing key rotation and user-wide token
// revocation.
type Admin struct {
	rbac     *service.RBAC
	audit    *service.AuditRecorder
	archiver *service.AuditArchiver
	tokens   *service.TokenService
	keys     *keys.Manager
	logger   *logger.Logger
}

// NewAdmin creates an Admin handler. The archiver may be nil when audit
// export storage is not configured.
func NewAdmin(
	rbac *service.RBAC,
	audit *service.AuditRecorder,
	archiver *service.AuditArchiver,
	tokens *service.TokenService,
	keys *keys.Manager,
	logger *logger.Logger,
) *Admin {
	return &Admin{
		rbac:     rbac,
		audit:    audit,
		archiver: archiver,
		tokens:   tokens,
		keys:     keys,
		logger:   logger,
	}
}

type roleResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type permissionResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// ListRoles returns the role catalog.
func (h *Admin) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.rbac.ListRoles(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rolesToResponse(roles))
}

// ListPermissions returns the permission catalog.
func (h *Admin) ListPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.rbac.ListPermissions(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, permissionsToResponse(permissions))
}

// AssignRole grants a role to a user. Idempotent.
func (h *Admin) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID, err := pathUserRole(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	if err := h.rbac.AssignRole(r.Context(), actorID(r), userID, roleID); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevokeRole removes a role from a user. Idempotent.
func (h *Admin) RevokeRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID, err := pathUserRole(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	if err := h.rbac.RevokeRole(r.Context(), actorID(r), userID, roleID); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UserRoles lists the roles assigned to a user.
func (h *Admin) UserRoles(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeAPIError(w, model.ErrInvalidRequest)
		return
	}

	roles, err := h.rbac.UserRoles(r.Context(), userID)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rolesToResponse(roles))
}

// UserPermissions resolves the user's effective permission set.
func (h *Admin) UserPermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeAPIError(w, model.ErrInvalidRequest)
		return
	}

	permissions, err := h.rbac.EffectivePermissions(r.Context(), userID)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, permissionsToResponse(permissions))
}

// RevokeUserTokens revokes every refresh token of a user.
func (h *Admin) RevokeUserTokens(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeAPIError(w, model.ErrInvalidRequest)
		return
	}

	if err := h.tokens.RevokeAllForUser(r.Context(), userID); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type auditEventResponse struct {
	ID           string `json:"id"`
	ActorID      string `json:"actor_id,omitempty"`
	Action       string `json:"action"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	Status       string `json:"status"`
	Severity     string `json:"severity"`
	Detail       string `json:"detail,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// QueryAudit returns audit events matching the query parameters, newest
// first.
func (h *Admin) QueryAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := model.AuditFilter{
		ActorID:      q.Get("actor_id"),
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		Status:       q.Get("status"),
		Severity:     model.AuditSeverity(q.Get("severity")),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	var err error
	if filter.From, filter.To, err = timeRange(q.Get("from"), q.Get("to")); err != nil {
		writeAPIError(w, model.ErrInvalidRequest)
		return
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	out := make([]auditEventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, auditEventResponse{
			ID:           event.ID.String(),
			ActorID:      event.ActorID,
			Action:       event.Action,
			ResourceType: event.ResourceType,
			ResourceID:   event.ResourceID,
			Status:       event.Status,
			Severity:     string(event.Severity),
			Detail:       event.Detail,
			CreatedAt:    event.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type exportResponse struct {
	Key string `json:"key"`
}

// ExportAudit copies the [from, to) audit range to archive storage and
// returns the object key. Returns 503 when no archive storage is wired.
func (h *Admin) ExportAudit(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "archive storage not configured"})
		return
	}

	from, to, err := timeRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil || from.IsZero() || to.IsZero() {
		writeAPIError(w, model.ErrInvalidRequest)
		return
	}

	key, err := h.archiver.Export(r.Context(), from, to)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{Key: key})
}

type rotateKeyResponse struct {
	KID string `json:"kid"`
}

// RotateKey promotes a freshly generated signing key to active. The
// previous key keeps verifying until its retention window closes.
func (h *Admin) RotateKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.keys.Rotate(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}

	if err := h.audit.Record(r.Context(), model.AuditEvent{
		ActorID:      actorID(r),
		Action:       "keys.rotate",
		ResourceType: "signing_key",
		ResourceID:   key.KID,
		Status:       model.AuditSuccess,
	}); err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rotateKeyResponse{KID: key.KID})
}

func pathUserRole(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		return uuid.Nil, uuid.Nil, model.ErrInvalidRequest
	}
	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		return uuid.Nil, uuid.Nil, model.ErrInvalidRequest
	}
	return userID, roleID, nil
}

func actorID(r *http.Request) string {
	if userID, ok := httpcontext.UserID(r.Context()); ok {
		return userID.String()
	}
	return ""
}

func timeRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if fromRaw != "" {
		if from, err = time.Parse(time.RFC3339, fromRaw); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if toRaw != "" {
		if to, err = time.Parse(time.RFC3339, toRaw); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return from, to, nil
}

func rolesToResponse(roles []model.Role) []roleResponse {
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResponse{
			ID:          role.ID.String(),
			Name:        role.Name,
			Description: role.Description,
		})
	}
	return out
}

func permissionsToResponse(permissions []model.Permission) []permissionResponse {
	out := make([]permissionResponse, 0, len(permissions))
	for _, p := range permissions {
		out = append(out, permissionResponse{
			ID:       p.ID.String(),
			Name:     p.Name,
			Resource: p.Resource,
			Action:   p.Action,
		})
	}
	return out
}

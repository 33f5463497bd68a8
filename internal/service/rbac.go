package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/avollmer/oauthd/internal/logger"
	"github.com/avollmer/oauthd/internal/model"
)

// RBAC resolves and mutates role assignments. Permissions attach to
// roles, roles attach to users; the effective set is the union across
// all assigned roles, recomputed on demand.
type RBAC struct {
	roles  model.RoleStore
	users  model.UserStore
	audit  *AuditRecorder
	logger *logger.Logger
}

func NewRBAC(roles model.RoleStore, users model.UserStore, audit *AuditRecorder, logger *logger.Logger) *RBAC {
	return &RBAC{
		roles:  roles,
		users:  users,
		audit:  audit,
		logger: logger,
	}
}

// AssignRole grants a role to a user. Assigning an already-held role is
// a no-op. Missing user or role fails with model.ErrNotFound.
func (r *RBAC) AssignRole(ctx context.Context, actorID string, userID, roleID uuid.UUID) error {
	if err := r.checkUserAndRole(ctx, userID, roleID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			if auditErr := r.auditRole(ctx, actorID, "rbac.assign_role", userID, roleID, model.AuditFailure, "user or role not found"); auditErr != nil {
				return auditErr
			}
		}
		return err
	}

	if err := r.roles.AssignRole(ctx, userID, roleID); err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}

	return r.auditRole(ctx, actorID, "rbac.assign_role", userID, roleID, model.AuditSuccess, "")
}

// RevokeRole removes a role from a user. Revoking an absent role is a
// no-op. Missing user or role fails with model.ErrNotFound.
func (r *RBAC) RevokeRole(ctx context.Context, actorID string, userID, roleID uuid.UUID) error {
	if err := r.checkUserAndRole(ctx, userID, roleID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			if auditErr := r.auditRole(ctx, actorID, "rbac.revoke_role", userID, roleID, model.AuditFailure, "user or role not found"); auditErr != nil {
				return auditErr
			}
		}
		return err
	}

	if err := r.roles.RevokeRole(ctx, userID, roleID); err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}

	return r.auditRole(ctx, actorID, "rbac.revoke_role", userID, roleID, model.AuditSuccess, "")
}

// EffectivePermissions returns the union of permissions across every
// role assigned to the user. No caching: the store is the truth.
func (r *RBAC) EffectivePermissions(ctx context.Context, userID uuid.UUID) ([]model.Permission, error) {
	permissions, err := r.roles.UserPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve permissions: %w", err)
	}
	return permissions, nil
}

// Authorize reports whether the user holds a permission for exactly the
// given resource and action. No implicit wildcards: a wildcard only
// matches when stored as a literal permission entry.
func (r *RBAC) Authorize(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error) {
	permissions, err := r.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range permissions {
		if p.Resource == resource && p.Action == action {
			return true, nil
		}
	}
	return false, nil
}

// ListRoles exposes the role catalog to the admin surface.
func (r *RBAC) ListRoles(ctx context.Context) ([]model.Role, error) {
	roles, err := r.roles.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

// ListPermissions exposes the permission catalog to the admin surface.
func (r *RBAC) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	permissions, err := r.roles.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return permissions, nil
}

// UserRoles lists the roles currently assigned to a user.
func (r *RBAC) UserRoles(ctx context.Context, userID uuid.UUID) ([]model.Role, error) {
	roles, err := r.roles.UserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", err)
	}
	return roles, nil
}

func (r *RBAC) checkUserAndRole(ctx context.Context, userID, roleID uuid.UUID) error {
	if _, err := r.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if _, err := r.roles.GetRole(ctx, roleID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotFound
		}
		return fmt.Errorf("failed to load role: %w", err)
	}
	return nil
}

func (r *RBAC) auditRole(ctx context.Context, actorID, action string, userID, roleID uuid.UUID, status, detail string) error {
	return r.audit.Record(ctx, model.AuditEvent{
		ActorID:      actorID,
		Action:       action,
		ResourceType: "user_role",
		ResourceID:   fmt.Sprintf("%s:%s", userID, roleID),
		Status:       status,
		Detail:       detail,
	})
}

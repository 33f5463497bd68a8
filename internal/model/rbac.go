package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RoleStore persists the flat role/permission model. Role assignment is
// idempotent: assigning an already-held role or revoking an absent one
// succeeds without effect.
type RoleStore interface {
	GetRole(ctx context.Context, roleID uuid.UUID) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	RolePermissions(ctx context.Context, roleID uuid.UUID) ([]Permission, error)
	AssignRole(ctx context.Context, userID, roleID uuid.UUID) error
	RevokeRole(ctx context.Context, userID, roleID uuid.UUID) error
	UserRoles(ctx context.Context, userID uuid.UUID) ([]Role, error)
	// UserPermissions returns the union of permissions over every role
	// assigned to the user.
	UserPermissions(ctx context.Context, userID uuid.UUID) ([]Permission, error)
}

// Role groups permissions. Roles are flat; there is no hierarchy.
type Role struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission names an allowed (resource, action) pair. Matching is
// exact; wildcards exist only as explicit permission rows.
type Permission struct {
	ID       uuid.UUID
	Name     string
	Resource string
	Action   string
}

// UserRoleAssignment links a user to a role.
type UserRoleAssignment struct {
	UserID    uuid.UUID
	RoleID    uuid.UUID
	CreatedAt time.Time
}

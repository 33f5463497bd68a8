package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avollmer/oauthd/internal/model"
)

var _ model.RoleStore = (*RoleRepository)(nil)

type RoleRepository struct {
	db *Connection
}

func NewRoleRepository(db *Connection) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) GetRole(ctx context.Context, roleID uuid.UUID) (model.Role, error) {
	const query = `
        SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1
    `
	var role model.Role
	err := r.db.QueryRow(ctx, query, roleID).Scan(
		&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Role{}, model.ErrNotFound
		}
		return model.Role{}, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

func (r *RoleRepository) ListRoles(ctx context.Context) ([]model.Role, error) {
	const query = `
        SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}
	return roles, nil
}

func (r *RoleRepository) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	const query = `
        SELECT id, name, resource, action FROM permissions ORDER BY resource, action
    `
	return r.queryPermissions(ctx, query)
}

func (r *RoleRepository) RolePermissions(ctx context.Context, roleID uuid.UUID) ([]model.Permission, error) {
	const query = `
        SELECT p.id, p.name, p.resource, p.action
        FROM permissions p
        JOIN role_permissions rp ON rp.permission_id = p.id
        WHERE rp.role_id = $1
        ORDER BY p.resource, p.action
    `
	return r.queryPermissions(ctx, query, roleID)
}

// AssignRole is idempotent: re-assigning an already-held role is
// absorbed by the conflict clause.
func (r *RoleRepository) AssignRole(ctx context.Context, userID, roleID uuid.UUID) error {
	const query = `
        INSERT INTO user_roles (user_id, role_id, created_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id, role_id) DO NOTHING
    `
	if _, err := r.db.Exec(ctx, query, userID, roleID); err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// RevokeRole is idempotent: revoking an absent assignment affects zero
// rows and succeeds.
func (r *RoleRepository) RevokeRole(ctx context.Context, userID, roleID uuid.UUID) error {
	const query = `
        DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2
    `
	if _, err := r.db.Exec(ctx, query, userID, roleID); err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	return nil
}

func (r *RoleRepository) UserRoles(ctx context.Context, userID uuid.UUID) ([]model.Role, error) {
	const query = `
        SELECT r.id, r.name, r.description, r.created_at, r.updated_at
        FROM roles r
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id = $1
        ORDER BY r.name
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", err)
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user roles: %w", err)
	}
	return roles, nil
}

// UserPermissions resolves the union over all assigned roles in one
// query; DISTINCT collapses permissions shared by several roles.
func (r *RoleRepository) UserPermissions(ctx context.Context, userID uuid.UUID) ([]model.Permission, error) {
	const query = `
        SELECT DISTINCT p.id, p.name, p.resource, p.action
        FROM permissions p
        JOIN role_permissions rp ON rp.permission_id = p.id
        JOIN user_roles ur ON ur.role_id = rp.role_id
        WHERE ur.user_id = $1
        ORDER BY p.resource, p.action
    `
	return r.queryPermissions(ctx, query, userID)
}

func (r *RoleRepository) queryPermissions(ctx context.Context, query string, args ...any) ([]model.Permission, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	var permissions []model.Permission
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &p.Action); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permissions: %w", err)
	}
	return permissions, nil
}

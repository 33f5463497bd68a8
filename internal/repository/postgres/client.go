package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/avollmer/oauthd/internal/model"
)

var _ model.ClientStore = (*ClientRepository)(nil)

type ClientRepository struct {
	db *Connection
}

func NewClientRepository(db *Connection) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) GetByID(ctx context.Context, clientID string) (model.Client, error) {
	const query = `
        SELECT id, secret_hash, name, type, redirect_uris, grant_types, allowed_scopes, active, created_at, updated_at
        FROM clients WHERE id = $1
    `
	var c model.Client
	err := r.db.QueryRow(ctx, query, clientID).Scan(
		&c.ID, &c.SecretHash, &c.Name, &c.Type, &c.RedirectURIs, &c.GrantTypes,
		&c.AllowedScopes, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Client{}, model.ErrNotFound
		}
		return model.Client{}, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

func (r *ClientRepository) Create(ctx context.Context, client model.Client) error {
	const query = `
        INSERT INTO clients (id, secret_hash, name, type, redirect_uris, grant_types, allowed_scopes, active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW())
    `
	_, err := r.db.Exec(ctx, query,
		client.ID, client.SecretHash, client.Name, client.Type, client.RedirectURIs,
		client.GrantTypes, client.AllowedScopes, client.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (r *ClientRepository) SetActive(ctx context.Context, clientID string, active bool) error {
	const query = `
        UPDATE clients SET active = $2, updated_at = NOW() WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, clientID, active)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

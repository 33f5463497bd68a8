package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avollmer/oauthd/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

type RefreshTokenRepository struct {
	db *Connection
}

func NewRefreshTokenRepository(db *Connection) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

const refreshTokenColumns = `
    id, token_hash, user_id, client_id, family_id, scopes,
    issued_at, expires_at, revoked_at, replaced_by, created_at, updated_at
`

func (r *RefreshTokenRepository) Create(ctx context.Context, token model.RefreshToken) error {
	const query = `
        INSERT INTO refresh_tokens (
            id, token_hash, user_id, client_id, family_id, scopes,
            issued_at, expires_at, revoked_at, replaced_by, created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW())
    `
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, query,
		token.ID, token.TokenHash, token.UserID, token.ClientID, token.FamilyID, token.Scopes,
		token.IssuedAt, token.ExpiresAt, token.RevokedAt, token.ReplacedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) GetByHash(ctx context.Context, hash []byte) (model.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`

	var rt model.RefreshToken
	err := r.db.QueryRow(ctx, query, hash).Scan(
		&rt.ID, &rt.TokenHash, &rt.UserID, &rt.ClientID, &rt.FamilyID, &rt.Scopes,
		&rt.IssuedAt, &rt.ExpiresAt, &rt.RevokedAt, &rt.ReplacedBy, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RefreshToken{}, model.ErrNotFound
		}
		return model.RefreshToken{}, fmt.Errorf("failed to get refresh token by hash: %w", err)
	}
	return rt, nil
}

// Rotate revokes the old record and inserts its replacement inside one
// transaction. The conditional UPDATE is the reuse-detection hinge: a
// token already revoked or replaced affects zero rows, the transaction
// rolls back, and the caller sees ErrTokenRevoked.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldID uuid.UUID, replacement model.RefreshToken) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin rotation: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const revoke = `
        UPDATE refresh_tokens
        SET revoked_at = NOW(), replaced_by = $2, updated_at = NOW()
        WHERE id = $1 AND revoked_at IS NULL AND replaced_by IS NULL
    `
	tag, err := tx.Exec(ctx, revoke, oldID, replacement.ID)
	if err != nil {
		return fmt.Errorf("failed to revoke rotated token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTokenRevoked
	}

	const insert = `
        INSERT INTO refresh_tokens (
            id, token_hash, user_id, client_id, family_id, scopes,
            issued_at, expires_at, revoked_at, replaced_by, created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULL,NULL,NOW(),NOW())
    `
	_, err = tx.Exec(ctx, insert,
		replacement.ID, replacement.TokenHash, replacement.UserID, replacement.ClientID,
		replacement.FamilyID, replacement.Scopes, replacement.IssuedAt, replacement.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert replacement token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rotation: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE refresh_tokens SET revoked_at = NOW(), updated_at = NOW()
        WHERE id = $1 AND revoked_at IS NULL
    `
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeFamily(ctx context.Context, familyID uuid.UUID) error {
	const query = `
        UPDATE refresh_tokens SET revoked_at = NOW(), updated_at = NOW()
        WHERE family_id = $1 AND revoked_at IS NULL
    `
	if _, err := r.db.Exec(ctx, query, familyID); err != nil {
		return fmt.Errorf("failed to revoke token family: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID) error {
	const query = `
        UPDATE refresh_tokens SET revoked_at = NOW(), updated_at = NOW()
        WHERE user_id = $1 AND revoked_at IS NULL
    `
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens by user: %w", err)
	}
	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avollmer/oauthd/internal/model"
)

var _ model.AuthorizationCodeStore = (*AuthorizationCodeRepository)(nil)

type AuthorizationCodeRepository struct {
	db *Connection
}

func NewAuthorizationCodeRepository(db *Connection) *AuthorizationCodeRepository {
	return &AuthorizationCodeRepository{db: db}
}

func (r *AuthorizationCodeRepository) Create(ctx context.Context, code model.AuthorizationCode) error {
	const query = `
        INSERT INTO authorization_codes (
            id, code_hash, client_id, user_id, redirect_uri, scopes,
            code_challenge, code_challenge_method, nonce, consumed, expires_at, created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,false,$10,NOW())
    `
	_, err := r.db.Exec(ctx, query,
		code.ID, code.CodeHash, code.ClientID, code.UserID, code.RedirectURI, code.Scopes,
		code.CodeChallenge, code.CodeChallengeMethod, code.Nonce, code.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create authorization code: %w", err)
	}
	return nil
}

// Consume flips the consumed flag with a conditional UPDATE so that of
// any number of concurrent exchanges, exactly one sees the row. The
// loser of the race is distinguished from an unknown code by a second
// read.
func (r *AuthorizationCodeRepository) Consume(ctx context.Context, codeHash []byte) (model.AuthorizationCode, error) {
	const consume = `
        UPDATE authorization_codes SET consumed = true
        WHERE code_hash = $1 AND consumed = false
        RETURNING id, code_hash, client_id, user_id, redirect_uri, scopes,
                  code_challenge, code_challenge_method, nonce, consumed, expires_at, created_at
    `
	var code model.AuthorizationCode
	err := r.db.QueryRow(ctx, consume, codeHash).Scan(
		&code.ID, &code.CodeHash, &code.ClientID, &code.UserID, &code.RedirectURI, &code.Scopes,
		&code.CodeChallenge, &code.CodeChallengeMethod, &code.Nonce, &code.Consumed,
		&code.ExpiresAt, &code.CreatedAt,
	)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.AuthorizationCode{}, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	const exists = `
        SELECT 1 FROM authorization_codes WHERE code_hash = $1
    `
	var one int
	if err := r.db.QueryRow(ctx, exists, codeHash).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AuthorizationCode{}, model.ErrNotFound
		}
		return model.AuthorizationCode{}, fmt.Errorf("failed to check authorization code: %w", err)
	}
	return model.AuthorizationCode{}, model.ErrCodeConsumed
}

func (r *AuthorizationCodeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `
        DELETE FROM authorization_codes WHERE expires_at < $1
    `
	tag, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired authorization codes: %w", err)
	}
	return tag.RowsAffected(), nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avollmer/oauthd/internal/model"
)

var _ model.AuthorizationRequestStore = (*AuthorizationRequestRepository)(nil)

type AuthorizationRequestRepository struct {
	db *Connection
}

func NewAuthorizationRequestRepository(db *Connection) *AuthorizationRequestRepository {
	return &AuthorizationRequestRepository{db: db}
}

func (r *AuthorizationRequestRepository) Create(ctx context.Context, req model.AuthorizationRequest) error {
	const query = `
        INSERT INTO authorization_requests (
            handle, client_id, redirect_uri, requested_scopes, state, client_state,
            code_challenge, code_challenge_method, nonce, expires_at, created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
    `
	_, err := r.db.Exec(ctx, query,
		req.Handle, req.ClientID, req.RedirectURI, req.RequestedScopes, req.State,
		req.ClientState, req.CodeChallenge, req.CodeChallengeMethod, req.Nonce, req.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create authorization request: %w", err)
	}
	return nil
}

func (r *AuthorizationRequestRepository) GetByHandle(ctx context.Context, handle string) (model.AuthorizationRequest, error) {
	const query = `
        SELECT handle, client_id, redirect_uri, requested_scopes, state, client_state,
               code_challenge, code_challenge_method, nonce, expires_at, created_at
        FROM authorization_requests WHERE handle = $1
    `
	var req model.AuthorizationRequest
	err := r.db.QueryRow(ctx, query, handle).Scan(
		&req.Handle, &req.ClientID, &req.RedirectURI, &req.RequestedScopes, &req.State,
		&req.ClientState, &req.CodeChallenge, &req.CodeChallengeMethod, &req.Nonce,
		&req.ExpiresAt, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AuthorizationRequest{}, model.ErrNotFound
		}
		return model.AuthorizationRequest{}, fmt.Errorf("failed to get authorization request: %w", err)
	}
	return req, nil
}

// TransitionState is a compare-and-set on the state column. A stale
// expectation affects zero rows and reports ErrStaleConsent.
func (r *AuthorizationRequestRepository) TransitionState(ctx context.Context, handle string, from, to model.AuthorizationState) error {
	const query = `
        UPDATE authorization_requests SET state = $3 WHERE handle = $1 AND state = $2
    `
	tag, err := r.db.Exec(ctx, query, handle, from, to)
	if err != nil {
		return fmt.Errorf("failed to transition authorization request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrStaleConsent
	}
	return nil
}

func (r *AuthorizationRequestRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `
        DELETE FROM authorization_requests WHERE expires_at < $1
    `
	tag, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired authorization requests: %w", err)
	}
	return tag.RowsAffected(), nil
}

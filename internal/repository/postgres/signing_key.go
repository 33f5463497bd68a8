package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avollmer/oauthd/internal/model"
)

var _ model.SigningKeyStore = (*SigningKeyRepository)(nil)

type SigningKeyRepository struct {
	db *Connection
}

func NewSigningKeyRepository(db *Connection) *SigningKeyRepository {
	return &SigningKeyRepository{db: db}
}

const signingKeyColumns = `
    kid, algorithm, private_pem, public_pem, status, not_before, not_after, created_at, updated_at
`

func (r *SigningKeyRepository) Create(ctx context.Context, key model.SigningKey) error {
	const query = `
        INSERT INTO signing_keys (kid, algorithm, private_pem, public_pem, status, not_before, not_after, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
    `
	_, err := r.db.Exec(ctx, query,
		key.KID, key.Algorithm, key.PrivatePEM, key.PublicPEM, key.Status, key.NotBefore, key.NotAfter,
	)
	if err != nil {
		return fmt.Errorf("failed to create signing key: %w", err)
	}
	return nil
}

func (r *SigningKeyRepository) GetByKID(ctx context.Context, kid string) (model.SigningKey, error) {
	query := `SELECT ` + signingKeyColumns + ` FROM signing_keys WHERE kid = $1`
	return r.scanOne(ctx, query, kid)
}

func (r *SigningKeyRepository) GetActive(ctx context.Context) (model.SigningKey, error) {
	query := `SELECT ` + signingKeyColumns + ` FROM signing_keys WHERE status = 'active'`
	return r.scanOne(ctx, query)
}

func (r *SigningKeyRepository) ListVerification(ctx context.Context, now time.Time) ([]model.SigningKey, error) {
	query := `
        SELECT ` + signingKeyColumns + `
        FROM signing_keys
        WHERE status = 'active' OR (status = 'retiring' AND (not_after IS NULL OR not_after > $1))
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification keys: %w", err)
	}
	defer rows.Close()

	var keys []model.SigningKey
	for rows.Next() {
		var key model.SigningKey
		if err := rows.Scan(
			&key.KID, &key.Algorithm, &key.PrivatePEM, &key.PublicPEM, &key.Status,
			&key.NotBefore, &key.NotAfter, &key.CreatedAt, &key.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan signing key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate signing keys: %w", err)
	}
	return keys, nil
}

// Rotate demotes the active key and promotes the new one in a single
// transaction, keeping the exactly-one-active invariant at every commit
// boundary.
func (r *SigningKeyRepository) Rotate(ctx context.Context, newKey model.SigningKey, retireAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin key rotation: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const demote = `
        UPDATE signing_keys SET status = 'retiring', not_after = $1, updated_at = NOW()
        WHERE status = 'active'
    `
	if _, err := tx.Exec(ctx, demote, retireAt); err != nil {
		return fmt.Errorf("failed to demote active key: %w", err)
	}

	const promote = `
        INSERT INTO signing_keys (kid, algorithm, private_pem, public_pem, status, not_before, not_after, created_at, updated_at)
        VALUES ($1,$2,$3,$4,'active',$5,NULL,NOW(),NOW())
    `
	if _, err := tx.Exec(ctx, promote,
		newKey.KID, newKey.Algorithm, newKey.PrivatePEM, newKey.PublicPEM, newKey.NotBefore,
	); err != nil {
		return fmt.Errorf("failed to insert new active key: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit key rotation: %w", err)
	}
	return nil
}

func (r *SigningKeyRepository) Retire(ctx context.Context, retiringBefore time.Time) (int64, error) {
	const query = `
        UPDATE signing_keys SET status = 'retired', updated_at = NOW()
        WHERE status = 'retiring' AND not_after IS NOT NULL AND not_after < $1
    `
	tag, err := r.db.Exec(ctx, query, retiringBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to retire keys: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SigningKeyRepository) PurgeRetired(ctx context.Context, retiredBefore time.Time) (int64, error) {
	const query = `
        DELETE FROM signing_keys
        WHERE status = 'retired' AND not_after IS NOT NULL AND not_after < $1
    `
	tag, err := r.db.Exec(ctx, query, retiredBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to purge retired keys: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SigningKeyRepository) scanOne(ctx context.Context, query string, args ...any) (model.SigningKey, error) {
	var key model.SigningKey
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&key.KID, &key.Algorithm, &key.PrivatePEM, &key.PublicPEM, &key.Status,
		&key.NotBefore, &key.NotAfter, &key.CreatedAt, &key.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SigningKey{}, model.ErrNotFound
		}
		return model.SigningKey{}, fmt.Errorf("failed to get signing key: %w", err)
	}
	return key, nil
}

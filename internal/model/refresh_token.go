package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore persists refresh token records. Tokens are stored
// hashed; rotation and family revocation must be atomic at the store
// level so concurrent refreshes of the same token race safely.
type RefreshTokenStore interface {
	Create(ctx context.Context, token RefreshToken) error
	GetByHash(ctx context.Context, hash []byte) (RefreshToken, error)
	// Rotate revokes the old record and inserts its replacement in a
	// single transaction. It fails with ErrTokenRevoked when the old
	// record was already revoked or replaced, leaving the replacement
	// uncommitted.
	Rotate(ctx context.Context, oldID uuid.UUID, replacement RefreshToken) error
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeFamily(ctx context.Context, familyID uuid.UUID) error
	RevokeAllByUser(ctx context.Context, userID uuid.UUID) error
}

// RefreshToken is the stored form of an opaque refresh token. Records
// rotated from one another share a FamilyID; ReplacedBy points at the
// successor record.
type RefreshToken struct {
	ID         uuid.UUID
	TokenHash  []byte
	UserID     uuid.UUID
	ClientID   string
	FamilyID   uuid.UUID
	Scopes     []string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Revoked reports whether the record can no longer be presented.
func (t RefreshToken) Revoked() bool {
	return t.RevokedAt != nil || t.ReplacedBy != nil
}

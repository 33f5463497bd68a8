package model

import (
	"context"
	"time"
)

// KeyStatus tracks a signing key through its lifecycle. Exactly one key
// is active at any time; retiring keys remain valid for verification.
type KeyStatus string

const (
	KeyStatusActive   KeyStatus = "active"
	KeyStatusRetiring KeyStatus = "retiring"
	KeyStatusRetired  KeyStatus = "retired"
)

// SigningKeyStore persists signing keys. Rotation must be transactional:
// demoting the current active key and promoting the new one either both
// happen or neither does.
type SigningKeyStore interface {
	Create(ctx context.Context, key SigningKey) error
	GetByKID(ctx context.Context, kid string) (SigningKey, error)
	GetActive(ctx context.Context) (SigningKey, error)
	// ListVerification returns keys still resolvable for verification at
	// the given instant, newest first.
	ListVerification(ctx context.Context, now time.Time) ([]SigningKey, error)
	// Rotate demotes the current active key to retiring (verification
	// valid until retireAt) and inserts the new key as active, in one
	// transaction.
	Rotate(ctx context.Context, newKey SigningKey, retireAt time.Time) error
	// Retire moves retiring keys past the cutoff to retired.
	Retire(ctx context.Context, retiringBefore time.Time) (int64, error)
	// PurgeRetired deletes retired keys whose retention window elapsed.
	PurgeRetired(ctx context.Context, retiredBefore time.Time) (int64, error)
}

// SigningKey holds PEM-encoded RSA key material for token signing.
type SigningKey struct {
	KID        string
	Algorithm  string
	PrivatePEM []byte
	PublicPEM  []byte
	Status     KeyStatus
	NotBefore  time.Time
	NotAfter   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

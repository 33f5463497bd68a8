// Package keys owns the signing key lifecycle: generation, rotation,
// per-kid resolution for verification, and retirement.
package keys

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avollmer/oauthd/internal/logger"
	"github.com/avollmer/oauthd/internal/model"
)

const (
	keyBits   = 2048
	algorithm = "RS256"
)

// Manager drives signing keys through active -> retiring -> retired.
// Exactly one key is active for issuance; verification resolves any key
// still inside its retention window by kid.
type Manager struct {
	store      model.SigningKeyStore
	retention  time.Duration
	purgeGrace time.Duration
	logger     *logger.Logger
}

func NewManager(store model.SigningKeyStore, retention, purgeGrace time.Duration, logger *logger.Logger) *Manager {
	return &Manager{
		store:      store,
		retention:  retention,
		purgeGrace: purgeGrace,
		logger:     logger,
	}
}

// EnsureActive generates an initial key when none exists yet. Safe to
// call on every startup.
func (m *Manager) EnsureActive(ctx context.Context) error {
	_, err := m.store.GetActive(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrNotFound) && !errors.Is(err, model.ErrNoActiveKey) {
		return fmt.Errorf("failed to load active key: %w", err)
	}

	key, err := generate()
	if err != nil {
		return err
	}
	if err := m.store.Create(ctx, key); err != nil {
		return fmt.Errorf("failed to persist initial key: %w", err)
	}

	m.logger.Info("Key manager: generated initial signing key", "kid", key.KID)
	return nil
}

// Rotate generates a new key and promotes it to active while demoting
// the current active key to retiring. The store performs both moves in
// one transaction, so exactly one key is active afterwards.
func (m *Manager) Rotate(ctx context.Context) (model.SigningKey, error) {
	key, err := generate()
	if err != nil {
		return model.SigningKey{}, err
	}

	if err := m.store.Rotate(ctx, key, time.Now().Add(m.retention)); err != nil {
		return model.SigningKey{}, fmt.Errorf("failed to rotate signing key: %w", err)
	}

	m.logger.Info("Key manager: rotated signing key", "kid", key.KID)
	return key, nil
}

// Signer returns the active key's kid and private key for issuance.
func (m *Manager) Signer(ctx context.Context) (string, *rsa.PrivateKey, error) {
	key, err := m.store.GetActive(ctx)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", nil, model.ErrNoActiveKey
		}
		return "", nil, fmt.Errorf("failed to load active key: %w", err)
	}

	private, err := parsePrivate(key.PrivatePEM)
	if err != nil {
		return "", nil, err
	}
	return key.KID, private, nil
}

// VerificationKey resolves the public key for a kid. Active and retiring
// keys resolve while inside their validity window; anything else is
// model.ErrKeyNotFound. Resolution happens per request so verification
// tolerates concurrent rotation.
func (m *Manager) VerificationKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	key, err := m.store.GetByKID(ctx, kid)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to load key %q: %w", kid, err)
	}

	switch key.Status {
	case model.KeyStatusActive:
	case model.KeyStatusRetiring:
		if key.NotAfter != nil && time.Now().After(*key.NotAfter) {
			return nil, model.ErrKeyNotFound
		}
	default:
		return nil, model.ErrKeyNotFound
	}

	return parsePublic(key.PublicPEM)
}

// Sweep retires keys whose verification window elapsed and purges
// retired keys past the grace period. Intended to run periodically.
func (m *Manager) Sweep(ctx context.Context) error {
	now := time.Now()

	retired, err := m.store.Retire(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to retire keys: %w", err)
	}
	purged, err := m.store.PurgeRetired(ctx, now.Add(-m.purgeGrace))
	if err != nil {
		return fmt.Errorf("failed to purge retired keys: %w", err)
	}

	if retired > 0 || purged > 0 {
		m.logger.Info("Key manager: sweep finished", "retired", retired, "purged", purged)
	}
	return nil
}

// Retention reports how long a demoted key remains verification-valid.
func (m *Manager) Retention() time.Duration {
	return m.retention
}

// JWK is a public signing key in JSON Web Key form.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS lists every currently resolvable public key, newest first, for
// the jwks_uri endpoint.
func (m *Manager) JWKS(ctx context.Context) ([]JWK, error) {
	keys, err := m.store.ListVerification(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list verification keys: %w", err)
	}

	jwks := make([]JWK, 0, len(keys))
	for _, key := range keys {
		public, err := parsePublic(key.PublicPEM)
		if err != nil {
			return nil, err
		}
		jwks = append(jwks, JWK{
			Kty: "RSA",
			Use: "sig",
			Kid: key.KID,
			Alg: key.Algorithm,
			N:   base64.RawURLEncoding.EncodeToString(public.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(intToBytes(public.E)),
		})
	}
	return jwks, nil
}

func generate() (model.SigningKey, error) {
	private, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return model.SigningKey{}, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	privateDER, err := x509.MarshalPKCS8PrivateKey(private)
	if err != nil {
		return model.SigningKey{}, fmt.Errorf("failed to marshal private key: %w", err)
	}
	publicDER, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	if err != nil {
		return model.SigningKey{}, fmt.Errorf("failed to marshal public key: %w", err)
	}

	now := time.Now()
	return model.SigningKey{
		KID:        uuid.NewString(),
		Algorithm:  algorithm,
		PrivatePEM: pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateDER}),
		PublicPEM:  pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER}),
		Status:     model.KeyStatusActive,
		NotBefore:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func parsePrivate(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block in private key material")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	private, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return private, nil
}

func parsePublic(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block in public key material")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	public, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return public, nil
}

func intToBytes(n int) []byte {
	out := make([]byte, 0, 4)
	for shift := 24; shift >= 0; shift -= 8 {
		b := byte(n >> shift)
		if len(out) == 0 && b == 0 {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		out = []byte{0}
	}
	return out
}

package keys

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avollmer/oauthd/internal/mocks"
	"github.com/avollmer/oauthd/internal/model"
	"github.com/avollmer/oauthd/internal/testutil"
)

func newTestManager(store *mocks.SigningKeyStore) *Manager {
	return NewManager(store, 24*time.Hour, time.Hour, testutil.MakeNoopLogger())
}

func TestManager_EnsureActive_GeneratesWhenMissing(t *testing.T) {
	ctx := context.Background()
	store := &mocks.SigningKeyStore{}
	store.On("GetActive", mock.Anything).Return(model.SigningKey{}, model.ErrNotFound)
	store.On("Create", mock.Anything, mock.MatchedBy(func(key model.SigningKey) bool {
		return key.Status == model.KeyStatusActive && key.Algorithm == "RS256" && key.KID != ""
	})).Return(nil)

	m := newTestManager(store)
	require.NoError(t, m.EnsureActive(ctx))
	store.AssertExpectations(t)
}

func TestManager_EnsureActive_NoopWhenPresent(t *testing.T) {
	ctx := context.Background()
	store := &mocks.SigningKeyStore{}
	store.On("GetActive", mock.Anything).Return(model.SigningKey{KID: "existing"}, nil)

	m := newTestManager(store)
	require.NoError(t, m.EnsureActive(ctx))
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestManager_Rotate_PassesRetentionCutoff(t *testing.T) {
	ctx := context.Background()
	store := &mocks.SigningKeyStore{}
	before := time.Now()
	store.On("Rotate", mock.Anything, mock.Anything, mock.MatchedBy(func(retireAt time.Time) bool {
		return retireAt.After(before.Add(23 * time.Hour))
	})).Return(nil)

	m := newTestManager(store)
	key, err := m.Rotate(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, key.KID)
	assert.Equal(t, model.KeyStatusActive, key.Status)
	store.AssertExpectations(t)
}

func TestManager_SignerAndVerificationKey_RoundTrip(t *testing.T) {
	ctx := context.Background()
	generated, err := generate()
	require.NoError(t, err)

	store := &mocks.SigningKeyStore{}
	store.On("GetActive", mock.Anything).Return(generated, nil)
	store.On("GetByKID", mock.Anything, generated.KID).Return(generated, nil)

	m := newTestManager(store)

	kid, private, err := m.Signer(ctx)
	require.NoError(t, err)
	assert.Equal(t, generated.KID, kid)
	require.NotNil(t, private)

	public, err := m.VerificationKey(ctx, kid)
	require.NoError(t, err)
	assert.Equal(t, private.PublicKey.N, public.N)
}

func TestManager_Signer_NoActiveKey(t *testing.T) {
	ctx := context.Background()
	store := &mocks.SigningKeyStore{}
	store.On("GetActive", mock.Anything).Return(model.SigningKey{}, model.ErrNotFound)

	m := newTestManager(store)
	_, _, err := m.Signer(ctx)
	assert.ErrorIs(t, err, model.ErrNoActiveKey)
}

func TestManager_VerificationKey_Statuses(t *testing.T) {
	ctx := context.Background()
	generated, err := generate()
	require.NoError(t, err)

	t.Run("unknown kid", func(t *testing.T) {
		store := &mocks.SigningKeyStore{}
		store.On("GetByKID", mock.Anything, "missing").Return(model.SigningKey{}, model.ErrNotFound)

		m := newTestManager(store)
		_, err := m.VerificationKey(ctx, "missing")
		assert.ErrorIs(t, err, model.ErrKeyNotFound)
	})

	t.Run("retiring inside window", func(t *testing.T) {
		key := generated
		key.Status = model.KeyStatusRetiring
		notAfter := time.Now().Add(time.Hour)
		key.NotAfter = &notAfter

		store := &mocks.SigningKeyStore{}
		store.On("GetByKID", mock.Anything, key.KID).Return(key, nil)

		m := newTestManager(store)
		public, err := m.VerificationKey(ctx, key.KID)
		require.NoError(t, err)
		assert.NotNil(t, public)
	})

	t.Run("retiring past window", func(t *testing.T) {
		key := generated
		key.Status = model.KeyStatusRetiring
		notAfter := time.Now().Add(-time.Minute)
		key.NotAfter = &notAfter

		store := &mocks.SigningKeyStore{}
		store.On("GetByKID", mock.Anything, key.KID).Return(key, nil)

		m := newTestManager(store)
		_, err := m.VerificationKey(ctx, key.KID)
		assert.ErrorIs(t, err, model.ErrKeyNotFound)
	})

	t.Run("retired", func(t *testing.T) {
		key := generated
		key.Status = model.KeyStatusRetired

		store := &mocks.SigningKeyStore{}
		store.On("GetByKID", mock.Anything, key.KID).Return(key, nil)

		m := newTestManager(store)
		_, err := m.VerificationKey(ctx, key.KID)
		assert.ErrorIs(t, err, model.ErrKeyNotFound)
	})
}

func TestManager_Sweep(t *testing.T) {
	ctx := context.Background()
	store := &mocks.SigningKeyStore{}
	store.On("Retire", mock.Anything, mock.Anything).Return(int64(1), nil)
	store.On("PurgeRetired", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		// purge cutoff trails now by the grace period
		return cutoff.Before(time.Now())
	})).Return(int64(2), nil)

	m := newTestManager(store)
	require.NoError(t, m.Sweep(ctx))
	store.AssertExpectations(t)
}

func TestManager_JWKS(t *testing.T) {
	ctx := context.Background()
	active, err := generate()
	require.NoError(t, err)
	retiring, err := generate()
	require.NoError(t, err)
	retiring.Status = model.KeyStatusRetiring

	store := &mocks.SigningKeyStore{}
	store.On("ListVerification", mock.Anything, mock.Anything).Return([]model.SigningKey{active, retiring}, nil)

	m := newTestManager(store)
	jwks, err := m.JWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks, 2)

	for _, jwk := range jwks {
		assert.Equal(t, "RSA", jwk.Kty)
		assert.Equal(t, "sig", jwk.Use)
		assert.Equal(t, "RS256", jwk.Alg)
		assert.NotEmpty(t, jwk.N)
		assert.Equal(t, "AQAB", jwk.E)
	}
	assert.Equal(t, active.KID, jwks[0].Kid)
	assert.Equal(t, retiring.KID, jwks[1].Kid)
}

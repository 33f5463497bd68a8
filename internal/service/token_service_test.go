package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"github.com/avollmer/oauthd/internal/keys"
	"github.com/avollmer/oauthd/internal/mocks"
	"github.com/avollmer/oauthd/internal/model"
	"github.com/avollmer/oauthd/internal/testutil"
)

var (
	signingKeyOnce sync.Once
	signingKey     model.SigningKey
)

// testSigningKey returns one shared RSA key so the suite pays keygen
// cost only once.
func testSigningKey(t *testing.T) model.SigningKey {
	t.Helper()
	signingKeyOnce.Do(func() {
		private, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		privateDER, err := x509.MarshalPKCS8PrivateKey(private)
		require.NoError(t, err)
		publicDER, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
		require.NoError(t, err)

		now := time.Now()
		signingKey = model.SigningKey{
			KID:        uuid.NewString(),
			Algorithm:  "RS256",
			PrivatePEM: pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateDER}),
			PublicPEM:  pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER}),
			Status:     model.KeyStatusActive,
			NotBefore:  now,
			CreatedAt:  now,
		}
	})
	return signingKey
}

type tokenFixture struct {
	service       *TokenService
	refreshTokens *mocks.RefreshTokenStore
	users         *mocks.UserStore
	auditStore    *mocks.AuditStore
}

func newTokenFixture(t *testing.T) *tokenFixture {
	t.Helper()
	key := testSigningKey(t)

	keyStore := &mocks.SigningKeyStore{}
	keyStore.On("GetActive", mock.Anything).Return(key, nil)
	keyStore.On("GetByKID", mock.Anything, key.KID).Return(key, nil)

	refreshTokens := &mocks.RefreshTokenStore{}
	users := &mocks.UserStore{}
	auditStore := &mocks.AuditStore{}

	log := testutil.MakeNoopLogger()
	manager := keys.NewManager(keyStore, 24*time.Hour, time.Hour, log)
	recorder := NewAuditRecorder(auditStore, true, 100, log)

	svc := NewTokenService(manager, refreshTokens, users, recorder, TokenConfig{
		Issuer:     "https://auth.test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 720 * time.Hour,
		ClockSkew:  30 * time.Second,
	}, log)

	return &tokenFixture{
		service:       svc,
		refreshTokens: refreshTokens,
		users:         users,
		auditStore:    auditStore,
	}
}

func TestTokenService_Issue(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	userID := uuid.New()
	f.refreshTokens.On("Create", mock.Anything, mock.MatchedBy(func(record model.RefreshToken) bool {
		return record.UserID == userID && record.ClientID == "web" && len(record.TokenHash) == 32
	})).Return(nil)

	pair, err := f.service.Issue(ctx, IssueRequest{
		UserID:   userID,
		ClientID: "web",
		Scopes:   []string{"read", "write"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Empty(t, pair.IDToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.ExpiresIn)
	assert.Equal(t, []string{"read", "write"}, pair.Scopes)

	// the signed access token introspects as active
	info, err := f.service.Introspect(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, info.Active)
	assert.Equal(t, userID, info.UserID)
	assert.Equal(t, "web", info.ClientID)
	assert.ElementsMatch(t, []string{"read", "write"}, info.Scopes)
}

func TestTokenService_Issue_OpenIDProfile(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	userID := uuid.New()
	f.refreshTokens.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.users.On("GetByID", mock.Anything, userID).Return(model.User{ID: userID, Login: "alice"}, nil)

	pair, err := f.service.Issue(ctx, IssueRequest{
		UserID:   userID,
		ClientID: "web",
		Scopes:   []string{"openid", "profile"},
		Nonce:    "n-0S6_WzA2Mj",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.IDToken)
}

func TestTokenService_Refresh_RotatesToken(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	presented := "presented-refresh-token"
	familyID := uuid.New()
	record := model.RefreshToken{
		ID:        uuid.New(),
		TokenHash: hashToken(presented),
		UserID:    uuid.New(),
		ClientID:  "web",
		FamilyID:  familyID,
		Scopes:    []string{"read"},
		IssuedAt:  time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(time.Hour),
	}

	f.refreshTokens.On("GetByHash", mock.Anything, hashToken(presented)).Return(record, nil)
	f.refreshTokens.On("Rotate", mock.Anything, record.ID, mock.MatchedBy(func(replacement model.RefreshToken) bool {
		return replacement.FamilyID == familyID && replacement.UserID == record.UserID
	})).Return(nil)
	f.auditStore.On("Append", mock.Anything, mock.Anything).Return(nil)

	pair, err := f.service.Refresh(ctx, presented, "web")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, presented, pair.RefreshToken)
	f.refreshTokens.AssertExpectations(t)
}

func TestTokenService_Refresh_UnknownToken(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	f.refreshTokens.On("GetByHash", mock.Anything, mock.Anything).Return(model.RefreshToken{}, model.ErrNotFound)
	f.auditStore.On("Append", mock.Anything, mock.MatchedBy(func(event model.AuditEvent) bool {
		return event.Status == model.AuditFailure && event.Severity == model.SeverityWarn
	})).Return(nil)

	_, err := f.service.Refresh(ctx, "garbage", "web")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTokenService_Refresh_WrongClient(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	record := model.RefreshToken{
		ID:        uuid.New(),
		ClientID:  "web",
		UserID:    uuid.New(),
		FamilyID:  uuid.New(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	f.refreshTokens.On("GetByHash", mock.Anything, mock.Anything).Return(record, nil)
	f.auditStore.On("Append", mock.Anything, mock.MatchedBy(func(event model.AuditEvent) bool {
		return event.Severity == model.SeverityAttack
	})).Return(nil)

	_, err := f.service.Refresh(ctx, "stolen", "mobile")
	assert.ErrorIs(t, err, model.ErrTokenMismatch)
	f.refreshTokens.AssertNotCalled(t, "RevokeFamily", mock.Anything, mock.Anything)
}

func TestTokenService_Refresh_ReuseRevokesFamily(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	familyID := uuid.New()
	revokedAt := time.Now().Add(-time.Minute)
	record := model.RefreshToken{
		ID:        uuid.New(),
		ClientID:  "web",
		UserID:    uuid.New(),
		FamilyID:  familyID,
		ExpiresAt: time.Now().Add(time.Hour),
		RevokedAt: &revokedAt,
	}
	f.refreshTokens.On("GetByHash", mock.Anything, mock.Anything).Return(record, nil)
	f.refreshTokens.On("RevokeFamily", mock.Anything, familyID).Return(nil)
	f.auditStore.On("Append", mock.Anything, mock.MatchedBy(func(event model.AuditEvent) bool {
		return event.Severity == model.SeverityAttack && event.ResourceID == familyID.String()
	})).Return(nil)

	_, err := f.service.Refresh(ctx, "reused", "web")
	assert.ErrorIs(t, err, model.ErrReuseDetected)
	f.refreshTokens.AssertExpectations(t)
}

func TestTokenService_Refresh_RotationRaceRevokesFamily(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	familyID := uuid.New()
	record := model.RefreshToken{
		ID:        uuid.New(),
		ClientID:  "web",
		UserID:    uuid.New(),
		FamilyID:  familyID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	f.refreshTokens.On("GetByHash", mock.Anything, mock.Anything).Return(record, nil)
	f.refreshTokens.On("Rotate", mock.Anything, record.ID, mock.Anything).Return(model.ErrTokenRevoked)
	f.refreshTokens.On("RevokeFamily", mock.Anything, familyID).Return(nil)
	f.auditStore.On("Append", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.Refresh(ctx, "raced", "web")
	assert.ErrorIs(t, err, model.ErrReuseDetected)
	f.refreshTokens.AssertExpectations(t)
}

func TestTokenService_Refresh_Expired(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	record := model.RefreshToken{
		ID:        uuid.New(),
		ClientID:  "web",
		UserID:    uuid.New(),
		FamilyID:  uuid.New(),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	f.refreshTokens.On("GetByHash", mock.Anything, mock.Anything).Return(record, nil)
	f.auditStore.On("Append", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.Refresh(ctx, "old", "web")
	assert.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestTokenService_Introspect_InvalidToken(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	f.refreshTokens.On("GetByHash", mock.Anything, mock.Anything).Return(model.RefreshToken{}, model.ErrNotFound)

	info, err := f.service.Introspect(ctx, "not-a-token")
	require.NoError(t, err)
	assert.False(t, info.Active)
}

func TestTokenService_Introspect_RevokedRefreshToken(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	revokedAt := time.Now()
	record := model.RefreshToken{
		ID:        uuid.New(),
		ClientID:  "web",
		ExpiresAt: time.Now().Add(time.Hour),
		RevokedAt: &revokedAt,
	}
	f.refreshTokens.On("GetByHash", mock.Anything, mock.Anything).Return(record, nil)

	info, err := f.service.Introspect(ctx, "revoked-refresh")
	require.NoError(t, err)
	assert.False(t, info.Active)
}

func TestTokenService_Revoke_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	f.refreshTokens.On("GetByHash", mock.Anything, mock.Anything).Return(model.RefreshToken{}, model.ErrNotFound)
	f.auditStore.On("Append", mock.Anything, mock.MatchedBy(func(event model.AuditEvent) bool {
		return event.Action == "token.revoke" && event.Status == model.AuditSuccess
	})).Return(nil)

	err := f.service.Revoke(ctx, "unknown-token", "web")
	assert.NoError(t, err)
	f.refreshTokens.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
}

func TestTokenService_Revoke_ExistingToken(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	record := model.RefreshToken{ID: uuid.New(), ClientID: "web"}
	f.refreshTokens.On("GetByHash", mock.Anything, mock.Anything).Return(record, nil)
	f.refreshTokens.On("Revoke", mock.Anything, record.ID).Return(nil)
	f.auditStore.On("Append", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.service.Revoke(ctx, "live-token", "web"))
	f.refreshTokens.AssertExpectations(t)
}

func TestTokenService_RevokeAllForUser(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	userID := uuid.New()
	f.refreshTokens.On("RevokeAllByUser", mock.Anything, userID).Return(nil)
	f.auditStore.On("Append", mock.Anything, mock.MatchedBy(func(event model.AuditEvent) bool {
		return event.Action == "token.revoke_all" && event.ResourceID == userID.String()
	})).Return(nil)

	require.NoError(t, f.service.RevokeAllForUser(ctx, userID))
	f.refreshTokens.AssertExpectations(t)
}

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avollmer/oauthd/internal/keys"
	"github.com/avollmer/oauthd/internal/mocks"
	"github.com/avollmer/oauthd/internal/model"
	"github.com/avollmer/oauthd/internal/testutil"
)

func TestWellKnown_Discovery(t *testing.T) {
	h := NewWellKnown("https://auth.test/", nil, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil)
	w := httptest.NewRecorder()
	h.Discovery(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var doc discoveryDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "https://auth.test", doc.Issuer)
	assert.Equal(t, "https://auth.test/authorize", doc.AuthorizationEndpoint)
	assert.Equal(t, "https://auth.test/token", doc.TokenEndpoint)
	assert.Equal(t, "https://auth.test/.well-known/jwks.json", doc.JWKSURI)
	assert.Equal(t, []string{"code"}, doc.ResponseTypesSupported)
	assert.Equal(t, []string{"authorization_code", "refresh_token"}, doc.GrantTypesSupported)
	assert.Equal(t, []string{"S256"}, doc.CodeChallengeMethodsSupported)
}

func TestWellKnown_JWKS(t *testing.T) {
	key := testSigningKey(t)
	retiring := key
	retiring.KID = "retiring-kid"
	retiring.Status = model.KeyStatusRetiring

	keyStore := &mocks.SigningKeyStore{}
	keyStore.On("ListVerification", mock.Anything, mock.Anything).Return([]model.SigningKey{key, retiring}, nil)

	log := testutil.MakeNoopLogger()
	manager := keys.NewManager(keyStore, 24*time.Hour, time.Hour, log)
	h := NewWellKnown("https://auth.test", manager, log)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	w := httptest.NewRecorder()
	h.JWKS(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp jwksResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Keys, 2)
	assert.Equal(t, key.KID, resp.Keys[0].Kid)
	assert.Equal(t, "retiring-kid", resp.Keys[1].Kid)
	for _, jwk := range resp.Keys {
		assert.Equal(t, "RSA", jwk.Kty)
		assert.Equal(t, "sig", jwk.Use)
		assert.NotEmpty(t, jwk.N)
	}
}

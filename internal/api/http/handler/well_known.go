package handler

import (
	"net/http"
	"strings"

	"github.com/avollmer/oauthd/internal/keys"
	"github.com/avollmer/oauthd/internal/logger"
)

// WellKnown serves discovery metadata and the JWKS document.
type WellKnown struct {
	issuer string
	keys   *keys.Manager
	logger *logger.Logger
}

// NewWellKnown creates a WellKnown handler for the given issuer.
func NewWellKnown(issuer string, keys *keys.Manager, logger *logger.Logger) *WellKnown {
	return &WellKnown{
		issuer: strings.TrimRight(issuer, "/"),
		keys:   keys,
		logger: logger,
	}
}

type discoveryDocument struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	IntrospectionEndpoint         string   `json:"introspection_endpoint"`
	RevocationEndpoint            string   `json:"revocation_endpoint"`
	JWKSURI                       string   `json:"jwks_uri"`
	ResponseTypesSupported        []string `json:"response_types_supported"`
	GrantTypesSupported           []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethods      []string `json:"token_endpoint_auth_methods_supported"`
	ScopesSupported               []string `json:"scopes_supported"`
}

// Discovery serves the authorization server metadata document.
func (h *WellKnown) Discovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, discoveryDocument{
		Issuer:                        h.issuer,
		AuthorizationEndpoint:         h.issuer + "/authorize",
		TokenEndpoint:                 h.issuer + "/token",
		IntrospectionEndpoint:         h.issuer + "/introspect",
		RevocationEndpoint:            h.issuer + "/revoke",
		JWKSURI:                       h.issuer + "/.well-known/jwks.json",
		ResponseTypesSupported:        []string{"code"},
		GrantTypesSupported:           []string{"authorization_code", "refresh_token"},
		CodeChallengeMethodsSupported: []string{"S256"},
		TokenEndpointAuthMethods:      []string{"client_secret_basic", "client_secret_post", "none"},
		ScopesSupported:               []string{"openid", "profile"},
	})
}

type jwksResponse struct {
	Keys []keys.JWK `json:"keys"`
}

// JWKS serves every currently resolvable public signing key. Retiring
// keys stay listed until their verification window closes, so tokens
// signed before a rotation keep verifying.
func (h *WellKnown) JWKS(w http.ResponseWriter, r *http.Request) {
	jwks, err := h.keys.JWKS(r.Context())
	if err != nil {
		h.logger.Error("WellKnown: jwks listing failed", "error", err.Error())
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jwksResponse{Keys: jwks})
}

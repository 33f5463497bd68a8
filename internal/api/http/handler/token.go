package handler

import (
	"net/http"
	"strings"

	"github.com/avollmer/oauthd/internal/model"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Token serves the token endpoint for the authorization_code and
// refresh_token grants.
func (h *OAuth) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, model.ErrInvalidRequest)
		return
	}

	client, err := h.clients.authenticate(r)
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	var pair model.TokenPair
	switch grant := r.PostFormValue("grant_type"); grant {
	case "authorization_code":
		pair, err = h.flow.Exchange(r.Context(),
			r.PostFormValue("code"),
			client.ID,
			r.PostFormValue("redirect_uri"),
			r.PostFormValue("code_verifier"),
		)
	case "refresh_token":
		pair, err = h.tokens.Refresh(r.Context(), r.PostFormValue("refresh_token"), client.ID)
	default:
		err = model.ErrUnsupportedGrant
	}
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		RefreshToken: pair.RefreshToken,
		IDToken:      pair.IDToken,
		Scope:        strings.Join(pair.Scopes, " "),
	})
}

type introspectResponse struct {
	Active   bool   `json:"active"`
	Scope    string `json:"scope,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Sub      string `json:"sub,omitempty"`
	Exp      int64  `json:"exp,omitempty"`
}

// Introspect reports token state per RFC 7662. Invalid, expired and
// revoked tokens all come back active=false; the endpoint never exposes
// why a token is inactive.
func (h *OAuth) Introspect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, model.ErrInvalidRequest)
		return
	}

	if _, err := h.clients.authenticate(r); err != nil {
		writeOAuthError(w, err)
		return
	}

	info, err := h.tokens.Introspect(r.Context(), r.PostFormValue("token"))
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	resp := introspectResponse{Active: info.Active}
	if info.Active {
		resp.Scope = strings.Join(info.Scopes, " ")
		resp.ClientID = info.ClientID
		resp.Sub = info.UserID.String()
		resp.Exp = info.ExpiresAt.Unix()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Revoke invalidates a presented refresh token per RFC 7009. Revoking an
// unknown or already-revoked token still returns 200.
func (h *OAuth) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, model.ErrInvalidRequest)
		return
	}

	client, err := h.clients.authenticate(r)
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	if err := h.tokens.Revoke(r.Context(), r.PostFormValue("token"), client.ID); err != nil {
		writeOAuthError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/avollmer/oauthd/internal/logger"
	"github.com/avollmer/oauthd/internal/model"
	"github.com/avollmer/oauthd/internal/service"
)

// OAuth serves the authorization code flow endpoints.
type OAuth struct {
	flow    *service.AuthorizationFlow
	tokens  *service.TokenService
	clients clientAuth
	logger  *logger.Logger
}

// NewOAuth creates an OAuth handler.
func NewOAuth(flow *service.AuthorizationFlow, tokens *service.TokenService, clients model.ClientStore, logger *logger.Logger) *OAuth {
	return &OAuth{
		flow:    flow,
		tokens:  tokens,
		clients: clientAuth{clients: clients},
		logger:  logger,
	}
}

type authorizeResponse struct {
	RequestHandle string `json:"request_handle"`
}

// Authorize validates an authorization request and parks it pending
// consent. Login and the consent UI live outside this server; the
// returned handle identifies the pending request to the consent form.
func (h *OAuth) Authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	handle, err := h.flow.Initiate(r.Context(), service.InitiateRequest{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		ResponseType:        q.Get("response_type"),
		Scopes:              splitScopeParam(q.Get("scope")),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
		Nonce:               q.Get("nonce"),
	})
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authorizeResponse{RequestHandle: handle})
}

// Consent applies the user's consent decision and redirects back to the
// client. Approval carries the authorization code, denial carries
// error=access_denied; both echo the client's state.
func (h *OAuth) Consent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, model.ErrInvalidRequest)
		return
	}

	userID, err := uuid.Parse(r.PostFormValue("user_id"))
	if err != nil {
		writeOAuthError(w, model.ErrInvalidRequest)
		return
	}
	handle := r.PostFormValue("request_handle")
	approved := r.PostFormValue("approved") == "true"
	approvedScopes := splitScopeParam(r.PostFormValue("scope"))

	result, err := h.flow.SubmitConsent(r.Context(), handle, userID, approved, approvedScopes)
	if err != nil {
		if errors.Is(err, model.ErrAccessDenied) && result.RedirectURI != "" {
			redirectError(w, r, result.RedirectURI, model.OAuthErrAccessDenied, result.ClientState)
			return
		}
		writeOAuthError(w, err)
		return
	}

	target, err := url.Parse(result.RedirectURI)
	if err != nil {
		writeOAuthError(w, model.ErrInvalidRequest)
		return
	}
	params := target.Query()
	params.Set("code", result.Code)
	if result.ClientState != "" {
		params.Set("state", result.ClientState)
	}
	target.RawQuery = params.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}

func redirectError(w http.ResponseWriter, r *http.Request, redirectURI, code, state string) {
	target, err := url.Parse(redirectURI)
	if err != nil {
		writeOAuthError(w, model.ErrInvalidRequest)
		return
	}
	params := target.Query()
	params.Set("error", code)
	if state != "" {
		params.Set("state", state)
	}
	target.RawQuery = params.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func splitScopeParam(scope string) []string {
	if scope == "" {
		return nil
	}
	return strings.Fields(scope)
}

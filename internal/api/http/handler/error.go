package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avollmer/oauthd/internal/model"
)

// oauthError is the RFC 6749 error response body.
type oauthError struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeOAuthError maps a domain error to the protocol error body. Grant
// failures come back as a bare invalid_grant; the reason lives in the
// audit trail only.
func writeOAuthError(w http.ResponseWriter, err error) {
	code := model.OAuthCode(err)

	status := http.StatusBadRequest
	switch code {
	case model.OAuthErrInvalidClient:
		w.Header().Set("WWW-Authenticate", `Basic realm="oauthd"`)
		status = http.StatusUnauthorized
	case model.OAuthErrAccessDenied:
		status = http.StatusForbidden
	case model.OAuthErrServerError:
		status = http.StatusInternalServerError
	}

	body := oauthError{Error: code}
	switch code {
	case model.OAuthErrInvalidGrant, model.OAuthErrServerError:
		// no description
	default:
		body.Description = err.Error()
	}
	writeJSON(w, status, body)
}

type apiError struct {
	Error string `json:"error"`
}

// writeAPIError maps domain errors on the admin surface to HTTP statuses.
func writeAPIError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
	case errors.Is(err, model.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal server error"})
	}
}

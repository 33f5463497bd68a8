package handler

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/avollmer/oauthd/internal/model"
)

// clientAuth authenticates the calling OAuth client. Confidential
// clients must present their secret via HTTP Basic auth or form fields;
// public clients authenticate by client_id alone and rely on PKCE.
type clientAuth struct {
	clients model.ClientStore
}

func (a *clientAuth) authenticate(r *http.Request) (model.Client, error) {
	clientID, secret := clientCredentials(r)
	if clientID == "" {
		return model.Client{}, model.ErrInvalidClient
	}

	client, err := a.clients.GetByID(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Client{}, model.ErrInvalidClient
		}
		return model.Client{}, fmt.Errorf("failed to load client: %w", err)
	}
	if !client.Active {
		return model.Client{}, model.ErrInvalidClient
	}

	if client.Type == model.ClientTypeConfidential {
		if secret == "" || !secretMatches(client.SecretHash, secret) {
			return model.Client{}, model.ErrInvalidClient
		}
	}

	return client, nil
}

func clientCredentials(r *http.Request) (clientID, secret string) {
	if id, s, ok := r.BasicAuth(); ok {
		return id, s
	}
	return r.PostFormValue("client_id"), r.PostFormValue("client_secret")
}

func secretMatches(hash []byte, secret string) bool {
	sum := sha256.Sum256([]byte(secret))
	return subtle.ConstantTimeCompare(hash, sum[:]) == 1
}

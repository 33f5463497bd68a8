package model

import (
	"context"
	"time"
)

// ClientType distinguishes confidential clients (hold a secret) from
// public ones (rely on PKCE alone).
type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential"
	ClientTypePublic       ClientType = "public"
)

// ClientStore defines persistence operations for registered clients.
type ClientStore interface {
	GetByID(ctx context.Context, clientID string) (Client, error)
	Create(ctx context.Context, client Client) error
	SetActive(ctx context.Context, clientID string, active bool) error
}

// Client represents a registered OAuth client application.
type Client struct {
	ID            string
	SecretHash    []byte
	Name          string
	Type          ClientType
	RedirectURIs  []string
	GrantTypes    []string
	AllowedScopes []string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AllowsRedirectURI reports whether the URI is an exact registered value.
// No prefix or wildcard matching.
func (c Client) AllowsRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// AllowsGrantType reports whether the client may use the grant type.
func (c Client) AllowsGrantType(grant string) bool {
	for _, g := range c.GrantTypes {
		if g == grant {
			return true
		}
	}
	return false
}

// AllowsScopes reports whether every requested scope is allowed.
func (c Client) AllowsScopes(scopes []string) bool {
	for _, s := range scopes {
		if !c.allowsScope(s) {
			return false
		}
	}
	return true
}

func (c Client) allowsScope(scope string) bool {
	for _, allowed := range c.AllowedScopes {
		if allowed == scope {
			return true
		}
	}
	return false
}

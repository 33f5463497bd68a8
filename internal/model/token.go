package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenPair is the result of a successful code exchange or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	ExpiresIn    int64
	Scopes       []string
}

// Introspection describes the state of a presented token. Invalid,
// expired and revoked tokens all yield Active=false rather than an error.
type Introspection struct {
	Active    bool
	Scopes    []string
	ClientID  string
	UserID    uuid.UUID
	ExpiresAt time.Time
}

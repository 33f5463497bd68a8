package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuthorizationState tracks an authorization request through its lifecycle.
type AuthorizationState string

const (
	StateRequested      AuthorizationState = "requested"
	StatePendingConsent AuthorizationState = "pending_consent"
	StateAuthorized     AuthorizationState = "authorized"
	StateConsumed       AuthorizationState = "consumed"
	StateExpired        AuthorizationState = "expired"
	StateDenied         AuthorizationState = "denied"
)

// AuthorizationRequestStore persists pending authorization requests
// between the authorize and consent steps.
type AuthorizationRequestStore interface {
	Create(ctx context.Context, req AuthorizationRequest) error
	GetByHandle(ctx context.Context, handle string) (AuthorizationRequest, error)
	// TransitionState moves the request from one state to another. It
	// returns ErrStaleConsent when the request is not in the expected
	// state, which makes double-submitted consent forms harmless.
	TransitionState(ctx context.Context, handle string, from, to AuthorizationState) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// AuthorizationRequest is the server-side record of an authorize call
// waiting for (or past) user consent. The handle is opaque to clients.
type AuthorizationRequest struct {
	Handle              string
	ClientID            string
	RedirectURI         string
	RequestedScopes     []string
	State               AuthorizationState
	ClientState         string
	CodeChallenge       string
	CodeChallengeMethod string
	Nonce               string
	ExpiresAt           time.Time
	CreatedAt           time.Time
}

// AuthorizationCodeStore persists issued authorization codes. Codes are
// stored hashed; the plaintext value exists only in the redirect.
type AuthorizationCodeStore interface {
	Create(ctx context.Context, code AuthorizationCode) error
	// Consume atomically marks the code consumed and returns it. A second
	// call for the same code fails with ErrCodeConsumed regardless of how
	// the calls interleave. Unknown codes fail with ErrNotFound.
	Consume(ctx context.Context, codeHash []byte) (AuthorizationCode, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// AuthorizationCode is a single-use credential binding a user's consent
// to the client that requested it.
type AuthorizationCode struct {
	ID                  uuid.UUID
	CodeHash            []byte
	ClientID            string
	UserID              uuid.UUID
	RedirectURI         string
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
	Nonce               string
	Consumed            bool
	ExpiresAt           time.Time
	CreatedAt           time.Time
}

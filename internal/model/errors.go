package model

import "errors"

// ErrNotFound is returned by stores when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// Client and request validation errors.
var (
	ErrInvalidClient      = errors.New("client unknown or inactive")
	ErrInvalidRedirectURI = errors.New("redirect uri not registered for client")
	ErrInvalidScope       = errors.New("requested scope not allowed for client")
	ErrUnsupportedGrant   = errors.New("grant type not allowed for client")
	ErrInvalidRequest     = errors.New("malformed authorization request")
)

// Grant errors. All of them map to the opaque invalid_grant protocol
// error so callers cannot probe which field failed.
var (
	ErrCodeConsumed  = errors.New("authorization code already consumed")
	ErrCodeExpired   = errors.New("authorization code expired")
	ErrCodeMismatch  = errors.New("authorization code does not match request")
	ErrPKCEMismatch  = errors.New("pkce verification failed")
	ErrTokenRevoked  = errors.New("refresh token revoked")
	ErrTokenExpired  = errors.New("refresh token expired")
	ErrTokenMismatch = errors.New("refresh token mismatch")
)

// Security errors. Detection always triggers family-wide revocation and
// a highest-severity audit event.
var ErrReuseDetected = errors.New("refresh token reuse detected")

// Flow and access errors.
var (
	ErrAccessDenied  = errors.New("resource owner denied the request")
	ErrStaleConsent  = errors.New("authorization request no longer pending")
	ErrKeyNotFound   = errors.New("signing key not found")
	ErrNoActiveKey   = errors.New("no active signing key")
	ErrAuditRejected = errors.New("audit write failed")
)

// OAuth protocol error codes as delivered to the calling application.
const (
	OAuthErrInvalidRequest       = "invalid_request"
	OAuthErrInvalidClient        = "invalid_client"
	OAuthErrInvalidGrant         = "invalid_grant"
	OAuthErrInvalidScope         = "invalid_scope"
	OAuthErrUnauthorizedClient   = "unauthorized_client"
	OAuthErrUnsupportedGrantType = "unsupported_grant_type"
	OAuthErrAccessDenied         = "access_denied"
	OAuthErrServerError          = "server_error"
)

// OAuthCode maps a domain error to its protocol error code. Grant-level
// failures deliberately collapse into invalid_grant: the distinction
// between an expired code, a consumed code and a PKCE mismatch lives in
// the audit trail, not in the response.
func OAuthCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return OAuthErrInvalidRequest
	case errors.Is(err, ErrInvalidClient):
		return OAuthErrInvalidClient
	case errors.Is(err, ErrInvalidRedirectURI):
		return OAuthErrInvalidRequest
	case errors.Is(err, ErrInvalidScope):
		return OAuthErrInvalidScope
	case errors.Is(err, ErrUnsupportedGrant):
		return OAuthErrUnsupportedGrantType
	case errors.Is(err, ErrAccessDenied):
		return OAuthErrAccessDenied
	case errors.Is(err, ErrCodeConsumed),
		errors.Is(err, ErrCodeExpired),
		errors.Is(err, ErrCodeMismatch),
		errors.Is(err, ErrPKCEMismatch),
		errors.Is(err, ErrTokenRevoked),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenMismatch),
		errors.Is(err, ErrReuseDetected),
		errors.Is(err, ErrNotFound):
		return OAuthErrInvalidGrant
	default:
		return OAuthErrServerError
	}
}

// Package pkce implements Proof Key for Code Exchange verification
// (RFC 7636). Validation is pure: no clock, no store, no side effects.
package pkce

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/avollmer/oauthd/internal/model"
)

// Challenge methods. Plain is accepted only when the caller explicitly
// allows it; S256 is the default and the only recommended method.
const (
	MethodS256  = "S256"
	MethodPlain = "plain"
)

const (
	verifierMinLen = 43
	verifierMaxLen = 128
)

// Validate checks a code verifier against the stored challenge. Any
// failure, including an unsupported method or malformed verifier, is
// reported as model.ErrPKCEMismatch so callers cannot distinguish the
// cause.
func Validate(challenge, method, verifier string, allowPlain bool) error {
	if challenge == "" || !validVerifier(verifier) {
		return model.ErrPKCEMismatch
	}

	switch method {
	case MethodS256:
		sum := sha256.Sum256([]byte(verifier))
		computed := base64.RawURLEncoding.EncodeToString(sum[:])
		if subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) != 1 {
			return model.ErrPKCEMismatch
		}
		return nil
	case MethodPlain:
		if !allowPlain {
			return model.ErrPKCEMismatch
		}
		if subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) != 1 {
			return model.ErrPKCEMismatch
		}
		return nil
	default:
		return model.ErrPKCEMismatch
	}
}

// SupportedMethod reports whether the method may appear in an authorize
// request under the current policy.
func SupportedMethod(method string, allowPlain bool) bool {
	return method == MethodS256 || (method == MethodPlain && allowPlain)
}

// ChallengeS256 derives the S256 challenge for a verifier. Used by
// clients and tests; the server itself only ever validates.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// validVerifier enforces the RFC 7636 length bounds and unreserved
// character set: ALPHA / DIGIT / "-" / "." / "_" / "~".
func validVerifier(verifier string) bool {
	if len(verifier) < verifierMinLen || len(verifier) > verifierMaxLen {
		return false
	}
	for i := 0; i < len(verifier); i++ {
		c := verifier[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '.' || c == '_' || c == '~':
		default:
			return false
		}
	}
	return true
}

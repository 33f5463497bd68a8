package pkce

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avollmer/oauthd/internal/model"
)

func randomVerifier(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func TestValidate_S256_RoundTrip(t *testing.T) {
	for i := 0; i < 50; i++ {
		verifier := randomVerifier(t)
		challenge := ChallengeS256(verifier)
		assert.NoError(t, Validate(challenge, MethodS256, verifier, false))
	}
}

func TestValidate_S256_MutatedVerifier(t *testing.T) {
	verifier := randomVerifier(t)
	challenge := ChallengeS256(verifier)

	for i := 0; i < len(verifier); i++ {
		mutated := []byte(verifier)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}
		err := Validate(challenge, MethodS256, string(mutated), false)
		assert.ErrorIs(t, err, model.ErrPKCEMismatch, "position %d", i)
	}
}

func TestValidate_VerifierLengthBounds(t *testing.T) {
	short := strings.Repeat("a", 42)
	long := strings.Repeat("a", 129)
	exact := strings.Repeat("a", 43)

	assert.ErrorIs(t, Validate(ChallengeS256(short), MethodS256, short, false), model.ErrPKCEMismatch)
	assert.ErrorIs(t, Validate(ChallengeS256(long), MethodS256, long, false), model.ErrPKCEMismatch)
	assert.NoError(t, Validate(ChallengeS256(exact), MethodS256, exact, false))
}

func TestValidate_VerifierCharset(t *testing.T) {
	bad := strings.Repeat("a", 42) + "!"
	assert.ErrorIs(t, Validate(ChallengeS256(bad), MethodS256, bad, false), model.ErrPKCEMismatch)

	ok := strings.Repeat("a", 40) + "-._~"
	assert.NoError(t, Validate(ChallengeS256(ok), MethodS256, ok, false))
}

func TestValidate_UnsupportedMethod(t *testing.T) {
	verifier := randomVerifier(t)
	err := Validate(ChallengeS256(verifier), "S512", verifier, false)
	assert.ErrorIs(t, err, model.ErrPKCEMismatch)
}

func TestValidate_Plain(t *testing.T) {
	verifier := randomVerifier(t)

	// Disallowed by default.
	assert.ErrorIs(t, Validate(verifier, MethodPlain, verifier, false), model.ErrPKCEMismatch)

	// Allowed only by explicit policy.
	assert.NoError(t, Validate(verifier, MethodPlain, verifier, true))
	assert.ErrorIs(t, Validate(verifier+"x", MethodPlain, verifier, true), model.ErrPKCEMismatch)
}

func TestValidate_EmptyChallenge(t *testing.T) {
	verifier := randomVerifier(t)
	assert.ErrorIs(t, Validate("", MethodS256, verifier, false), model.ErrPKCEMismatch)
}

func TestSupportedMethod(t *testing.T) {
	assert.True(t, SupportedMethod(MethodS256, false))
	assert.False(t, SupportedMethod(MethodPlain, false))
	assert.True(t, SupportedMethod(MethodPlain, true))
	assert.False(t, SupportedMethod("S512", true))
}

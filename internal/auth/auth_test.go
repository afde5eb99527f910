// internal/auth/auth_test.go
package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotContains(t, hash, "hunter2")

	ok, err := VerifyPassword("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	h1, err := HashPassword("hunter2")
	require.NoError(t, err)
	h2, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	_, err := VerifyPassword("hunter2", "not-an-encoded-hash")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestTokenRoundtrip(t *testing.T) {
	require.NoError(t, Init(time.Hour))

	token, err := CreateToken("alice")
	require.NoError(t, err)

	username, err := Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	require.NoError(t, Init(time.Hour))
	_, err := Authenticate("not.a.jwt")
	assert.Error(t, err)
	_, err = Authenticate("")
	assert.Error(t, err)
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	require.NoError(t, Init(-time.Minute))
	token, err := CreateToken("alice")
	require.NoError(t, err)

	_, err = Authenticate(token)
	assert.Error(t, err, "expired tokens must not authenticate")
}

func TestAuthenticateRejectsForeignKey(t *testing.T) {
	require.NoError(t, Init(time.Hour))
	token, err := CreateToken("alice")
	require.NoError(t, err)

	// Rotate the key pair; tokens signed before the rotation are invalid.
	require.NoError(t, Init(time.Hour))
	_, err = Authenticate(token)
	assert.Error(t, err)
}

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{Secret: "too-short"})
	assert.ErrorIs(t, err, ErrInvalidSecretLength)
}

func TestGenerateAndValidateToken(t *testing.T) {
	service, err := NewJWTService(JWTConfig{Secret: testSecret})
	require.NoError(t, err)

	token, err := service.GenerateToken("alice", RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, "alice", claims.Invoker())
	assert.Equal(t, "realmd", claims.Issuer)
	assert.True(t, claims.IsAdmin())
}

func TestObserverRoleIsNotAdmin(t *testing.T) {
	service, err := NewJWTService(JWTConfig{Secret: testSecret})
	require.NoError(t, err)

	token, err := service.GenerateToken("watcher", "observer")
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin())
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: testSecret})
	require.NoError(t, err)
	verifier, err := NewJWTService(JWTConfig{Secret: "ffffffffffffffffffffffffffffffff"})
	require.NoError(t, err)

	token, err := issuer.GenerateToken("alice", RoleAdmin)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	service, err := NewJWTService(JWTConfig{Secret: testSecret})
	require.NoError(t, err)

	_, err = service.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	service, err := NewJWTService(JWTConfig{Secret: testSecret, TokenDuration: -time.Minute})
	require.NoError(t, err)

	token, err := service.GenerateToken("alice", RoleAdmin)
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *JWTManager {
	return NewJWTManager("access-secret-for-tests", "refresh-secret-for-tests", 15*time.Minute, 7*24*time.Hour)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken("u-1", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "u-1", claims.Subject)
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateRefreshToken("u-1")
	require.NoError(t, err)

	claims, err := m.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
}

func TestRefreshToken_SuccessiveMintsDiffer(t *testing.T) {
	m := newTestManager()

	first, err := m.GenerateRefreshToken("u-1")
	require.NoError(t, err)
	second, err := m.GenerateRefreshToken("u-1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenKinds_UseDistinctSecrets(t *testing.T) {
	m := newTestManager()

	access, err := m.GenerateAccessToken("u-1", "alice")
	require.NoError(t, err)
	refresh, err := m.GenerateRefreshToken("u-1")
	require.NoError(t, err)

	// An access token must not verify as a refresh token, and vice versa.
	_, err = m.ValidateRefreshToken(access)
	assert.Error(t, err)
	_, err = m.ValidateAccessToken(refresh)
	assert.Error(t, err)
}

func TestValidate_WrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewJWTManager("different-access", "different-refresh", 15*time.Minute, 7*24*time.Hour)

	token, err := m.GenerateAccessToken("u-1", "alice")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidate_Expired(t *testing.T) {
	m := NewJWTManager("access-secret-for-tests", "refresh-secret-for-tests", -time.Minute, -time.Minute)

	access, err := m.GenerateAccessToken("u-1", "alice")
	require.NoError(t, err)
	refresh, err := m.GenerateRefreshToken("u-1")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(access)
	assert.Error(t, err)
	_, err = m.ValidateRefreshToken(refresh)
	assert.Error(t, err)
}

func TestValidate_Garbage(t *testing.T) {
	m := newTestManager()

	_, err := m.ValidateAccessToken("not-a-token")
	assert.Error(t, err)
	_, err = m.ValidateRefreshToken("")
	assert.Error(t, err)
}

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, exp, err := GenerateToken(secret, "cashier", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "cashier", claims.Username)
	assert.Equal(t, "cashier", claims.Subject)
}

func TestParseTokenRejects(t *testing.T) {
	secret := []byte("test-secret")

	token, _, err := GenerateToken(secret, "cashier", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken([]byte("other"), token)
	assert.Error(t, err)

	expired, _, err := GenerateToken(secret, "cashier", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.Error(t, err)

	_, err = ParseToken(secret, "not-a-token")
	assert.Error(t, err)
}

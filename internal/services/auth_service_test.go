package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_GenerateAndVerify(t *testing.T) {
	auth := NewAuthService("test-secret")

	token, err := auth.GenerateToken("device-1", time.Hour)
	require.NoError(t, err)

	claims, err := auth.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "device-1", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestAuthService_VerifyToken_Rejects(t *testing.T) {
	auth := NewAuthService("test-secret")

	expired, err := auth.GenerateToken("device-1", -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewAuthService("other-secret").GenerateToken("device-1", time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "device-1"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":    "not-a-token",
		"expired":    expired,
		"wrong key":  otherKey,
		"no expiry":  noExpiry,
		"no subject": noSubject,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := auth.VerifyToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestAuthService_GenerateToken_RequiresSubject(t *testing.T) {
	_, err := NewAuthService("test-secret").GenerateToken("", time.Hour)
	assert.Error(t, err)
}

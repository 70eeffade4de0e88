package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService("test-secret-at-least-32-chars-long", "stream-wallet-engine")
	userID := uuid.New()

	token, expiresAt, err := svc.Generate(userID, "user", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestJWTTokenService_RejectsExpiredToken(t *testing.T) {
	svc := NewJWTTokenService("test-secret-at-least-32-chars-long", "stream-wallet-engine")

	token, _, err := svc.Generate(uuid.New(), "user", -time.Minute)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsWrongSecret(t *testing.T) {
	svc := NewJWTTokenService("test-secret-at-least-32-chars-long", "stream-wallet-engine")
	other := NewJWTTokenService("a-completely-different-signing-key", "stream-wallet-engine")

	token, _, err := svc.Generate(uuid.New(), "admin", time.Hour)
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsGarbage(t *testing.T) {
	svc := NewJWTTokenService("test-secret-at-least-32-chars-long", "stream-wallet-engine")

	_, err := svc.Validate("not.a.jwt")
	assert.Error(t, err)
}

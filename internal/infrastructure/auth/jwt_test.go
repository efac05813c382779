package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockbook/backend/internal/infrastructure/config"
)

func newTestJWTService() *JWTService {
	cfg := config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	}
	return NewJWTService(cfg)
}

func TestNewJWTService(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:                "test-secret",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	}

	svc := NewJWTService(cfg)

	assert.NotNil(t, svc)
	assert.Equal(t, []byte(cfg.Secret), svc.secret)
	assert.Equal(t, cfg.AccessTokenExpiration, svc.expiration)
	assert.Equal(t, cfg.Issuer, svc.issuer)
}

func TestGenerateToken(t *testing.T) {
	svc := newTestJWTService()
	userID := uuid.New()

	token, err := svc.GenerateToken(userID, "clerk")

	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), token.ExpiresAt, 5*time.Second)
}

func TestValidateToken(t *testing.T) {
	t.Run("accepts a freshly issued token", func(t *testing.T) {
		svc := newTestJWTService()
		userID := uuid.New()

		token, err := svc.GenerateToken(userID, "clerk")
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token.AccessToken)

		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.UserID)
		assert.Equal(t, "clerk", claims.Username)
		assert.Equal(t, "test-issuer", claims.Issuer)

		parsed, err := claims.GetUserUUID()
		require.NoError(t, err)
		assert.Equal(t, userID, parsed)
	})

	t.Run("rejects a token signed with a different secret", func(t *testing.T) {
		svc := newTestJWTService()
		other := NewJWTService(config.JWTConfig{
			Secret:                "another-secret-key-for-other-env",
			AccessTokenExpiration: 15 * time.Minute,
			Issuer:                "test-issuer",
		})

		token, err := other.GenerateToken(uuid.New(), "clerk")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token.AccessToken)

		assert.Equal(t, ErrInvalidToken, err)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		svc := NewJWTService(config.JWTConfig{
			Secret:                "test-secret-key-at-least-32-chars",
			AccessTokenExpiration: -time.Minute,
			Issuer:                "test-issuer",
		})

		token, err := svc.GenerateToken(uuid.New(), "clerk")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token.AccessToken)

		assert.Equal(t, ErrExpiredToken, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		svc := newTestJWTService()

		_, err := svc.ValidateToken("not-a-token")

		assert.Equal(t, ErrInvalidToken, err)
	})
}

package auth

import (
	"testing"
	"time"

	"rekrut-portal/config"
	"rekrut-portal/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestJWTService() *JWTService {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:        "test-secret-key-for-jwt-tokens",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 7 * 24 * time.Hour,
		},
	}
	return NewJWTService(cfg)
}

func createTestUser() *models.User {
	return &models.User{
		ID:       uuid.New(),
		Email:    "test@example.com",
		Role:     models.RoleCandidate,
		IsActive: true,
	}
}

func TestNewJWTService(t *testing.T) {
	service := createTestJWTService()

	assert.NotNil(t, service)
	assert.Equal(t, []byte("test-secret-key-for-jwt-tokens"), service.secretKey)
	assert.Equal(t, "rekrut-portal", service.issuer)
	assert.Equal(t, 15*time.Minute, service.accessTTL)
	assert.Equal(t, 7*24*time.Hour, service.refreshTTL)
}

func TestGenerateTokenPair(t *testing.T) {
	service := createTestJWTService()
	user := createTestUser()

	tokenPair, err := service.GenerateTokenPair(user)

	require.NoError(t, err)
	assert.NotEmpty(t, tokenPair.AccessToken)
	assert.NotEmpty(t, tokenPair.RefreshToken)
	assert.Equal(t, "Bearer", tokenPair.TokenType)
	assert.Equal(t, int64(900), tokenPair.ExpiresIn) // 15 minutes
}

func TestValidateAccessToken(t *testing.T) {
	service := createTestJWTService()
	user := createTestUser()

	tokenPair, err := service.GenerateTokenPair(user)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(tokenPair.AccessToken)

	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.Role, claims.Role)
	assert.Equal(t, "rekrut-portal", claims.RegisteredClaims.Issuer)
	assert.Equal(t, user.ID.String(), claims.RegisteredClaims.Subject)
	assert.Contains(t, claims.RegisteredClaims.Audience, "rekrut-portal-api")
}

func TestValidateAccessToken_InvalidToken(t *testing.T) {
	service := createTestJWTService()

	tests := []struct {
		name  string
		token string
	}{
		{"empty_token", ""},
		{"invalid_token", "invalid.token.here"},
		{"malformed_token", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateAccessToken(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestValidateAccessToken_ExpiredToken(t *testing.T) {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:        "test-secret-key",
			AccessExpiry:  -time.Minute,
			RefreshExpiry: 7 * 24 * time.Hour,
		},
	}
	service := NewJWTService(cfg)
	user := createTestUser()

	tokenPair, err := service.GenerateTokenPair(user)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(tokenPair.AccessToken)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	service := createTestJWTService()
	user := createTestUser()

	tokenPair, err := service.GenerateTokenPair(user)
	require.NoError(t, err)

	other := NewJWTService(&config.Config{
		JWT: config.JWTConfig{
			Secret:        "a-different-secret",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 7 * 24 * time.Hour,
		},
	})

	claims, err := other.ValidateAccessToken(tokenPair.AccessToken)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestGenerateRefreshToken_Unique(t *testing.T) {
	service := createTestJWTService()

	first, err := service.GenerateRefreshToken()
	require.NoError(t, err)
	second, err := service.GenerateRefreshToken()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
	assert.Len(t, first, 64) // 32 random bytes hex encoded
}

func TestExtractTokenFromBearer(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{"valid_bearer", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"missing_prefix", "abc.def.ghi", ""},
		{"empty_header", "", ""},
		{"prefix_only", "Bearer ", ""},
		{"wrong_scheme", "Basic abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractTokenFromBearer(tt.header))
		})
	}
}

func TestTokenBlacklist(t *testing.T) {
	blacklist := NewTokenBlacklist()

	t.Run("unknown_token_not_blacklisted", func(t *testing.T) {
		assert.False(t, blacklist.IsBlacklisted("unknown-id"))
	})

	t.Run("added_token_is_blacklisted", func(t *testing.T) {
		blacklist.Add("token-id", time.Now().Add(time.Hour))
		assert.True(t, blacklist.IsBlacklisted("token-id"))
	})

	t.Run("expired_entry_is_released", func(t *testing.T) {
		blacklist.Add("expired-id", time.Now().Add(-time.Hour))
		assert.False(t, blacklist.IsBlacklisted("expired-id"))
	})
}

func TestValidateTokenWithBlacklist(t *testing.T) {
	service := createTestJWTService()
	user := createTestUser()

	tokenPair, err := service.GenerateTokenPair(user)
	require.NoError(t, err)

	claims, err := service.ValidateTokenWithBlacklist(tokenPair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	require.NoError(t, service.BlacklistToken(tokenPair.AccessToken))

	claims, err = service.ValidateTokenWithBlacklist(tokenPair.AccessToken)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestRefreshTokenExpiry(t *testing.T) {
	service := createTestJWTService()
	expiry := service.RefreshTokenExpiry()
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiry, time.Minute)
}

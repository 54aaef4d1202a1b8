package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rekrut-portal/config"
	"rekrut-portal/internal/models"
	"rekrut-portal/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(&config.Config{
		JWT: config.JWTConfig{
			Secret:        "test-secret-key-for-jwt-tokens",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 7 * 24 * time.Hour,
		},
	})
}

func tokenFor(t *testing.T, jwtService *auth.JWTService, role models.UserRole) (*models.User, string) {
	t.Helper()
	user := &models.User{
		ID:       uuid.New(),
		Email:    uuid.NewString() + "@example.com",
		Role:     role,
		IsActive: true,
	}
	pair, err := jwtService.GenerateTokenPair(user)
	require.NoError(t, err)
	return user, pair.AccessToken
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := testJWTService()
	middleware := AuthMiddleware(jwtService)

	t.Run("valid_token", func(t *testing.T) {
		user, token := tokenFor(t, jwtService, models.RoleCandidate)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/test", nil)
		c.Request.Header.Set("Authorization", "Bearer "+token)

		middleware(c)

		assert.False(t, c.IsAborted())
		assert.Equal(t, user.ID, c.MustGet("user_id"))
		assert.Equal(t, user.Email, c.MustGet("user_email"))
		assert.Equal(t, user.Role, c.MustGet("user_role"))
		assert.NotNil(t, c.MustGet("jwt_claims"))
	})

	t.Run("missing_auth_header", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/test", nil)

		middleware(c)

		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid_auth_format", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/test", nil)
		c.Request.Header.Set("Authorization", "Invalid format")

		middleware(c)

		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid_token", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/test", nil)
		c.Request.Header.Set("Authorization", "Bearer invalid-token")

		middleware(c)

		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("blacklisted_token", func(t *testing.T) {
		_, token := tokenFor(t, jwtService, models.RoleCandidate)
		require.NoError(t, jwtService.BlacklistToken(token))

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/test", nil)
		c.Request.Header.Set("Authorization", "Bearer "+token)

		middleware(c)

		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	t.Run("matching_role_passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/test", nil)
		c.Set("user_role", models.RoleRecruiter)

		RequireRecruiterOrAdmin()(c)

		assert.False(t, c.IsAborted())
	})

	t.Run("admin_passes_recruiter_gate", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/test", nil)
		c.Set("user_role", models.RoleAdmin)

		RequireRecruiterOrAdmin()(c)

		assert.False(t, c.IsAborted())
	})

	t.Run("wrong_role_forbidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/test", nil)
		c.Set("user_role", models.RoleCandidate)

		RequireAdmin()(c)

		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing_role_unauthorized", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/test", nil)

		RequireAdmin()(c)

		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestOptionalAuth(t *testing.T) {
	jwtService := testJWTService()
	middleware := OptionalAuth(jwtService)

	t.Run("no_header_passes_anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/test", nil)

		middleware(c)

		assert.False(t, c.IsAborted())
		assert.False(t, IsAuthenticated(c))
	})

	t.Run("valid_token_sets_identity", func(t *testing.T) {
		user, token := tokenFor(t, jwtService, models.RoleCandidate)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/test", nil)
		c.Request.Header.Set("Authorization", "Bearer "+token)

		middleware(c)

		assert.False(t, c.IsAborted())
		assert.Equal(t, user.ID, c.MustGet("user_id"))
	})

	t.Run("bad_token_passes_anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/test", nil)
		c.Request.Header.Set("Authorization", "Bearer garbage")

		middleware(c)

		assert.False(t, c.IsAborted())
		assert.False(t, IsAuthenticated(c))
	})
}

func TestContextHelpers(t *testing.T) {
	t.Run("current_user_id", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		id := uuid.New()
		c.Set("user_id", id)

		got, ok := GetCurrentUserID(c)
		assert.True(t, ok)
		assert.Equal(t, id, got)
	})

	t.Run("missing_user_id", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		_, ok := GetCurrentUserID(c)
		assert.False(t, ok)
	})

	t.Run("role_checks", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Set("user_role", models.RoleAdmin)

		assert.True(t, IsAdmin(c))
		assert.True(t, IsRecruiterOrAdmin(c))
	})

	t.Run("resource_access_by_ownership", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		owner := uuid.New()
		c.Set("user_id", owner)
		c.Set("user_role", models.RoleCandidate)

		assert.True(t, CanAccessResource(c, owner))
		assert.False(t, CanAccessResource(c, uuid.New()))
		assert.True(t, CanAccessResource(c, uuid.New(), models.RoleCandidate))
	})
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/redis"
	"github.com/ikkim/storefront-backend/pkg/util"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-for-middleware"

func setupMiddlewareTest() (*gin.Engine, *AuthMiddleware) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	middleware := NewAuthMiddleware(testJWTSecret)
	return router, middleware
}

func generateTestTokens(t *testing.T, userID uint, email, role string) *util.TokenPair {
	tokens, err := util.GenerateTokenPair(
		userID,
		email,
		role,
		testJWTSecret,
		15*time.Minute,
		7*24*time.Hour,
	)
	require.NoError(t, err)
	return tokens
}

func generateTestToken(t *testing.T, userID uint, email, role string) string {
	return generateTestTokens(t, userID, email, role).AccessToken
}

func TestAuthMiddleware_Authenticate_Success(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	token := generateTestToken(t, 1, "test@example.com", "user")

	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		email, _ := GetUserEmail(c)
		role, _ := GetUserRole(c)
		claims, ok := GetClaims(c)
		require.True(t, ok)
		assert.NotEmpty(t, claims.ID)

		c.JSON(http.StatusOK, gin.H{
			"user_id": userID,
			"email":   email,
			"role":    role,
		})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"test@example.com"`)
}

func TestAuthMiddleware_Authenticate_QueryToken(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	token := generateTestToken(t, 9, "ws@example.com", "user")

	router.GET("/ws", authMiddleware.Authenticate(), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})

	req := httptest.NewRequest("GET", "/ws?token="+token, nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":9`)
}

func TestAuthMiddleware_Authenticate_NoToken(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authorization header is required")
}

func TestAuthMiddleware_Authenticate_InvalidFormat(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	tests := []struct {
		name   string
		header string
	}{
		{
			name:   "Missing Bearer prefix",
			header: "invalid-token",
		},
		{
			name:   "Wrong prefix",
			header: "Basic token123",
		},
		{
			name:   "Empty token",
			header: "Bearer ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_Authenticate_InvalidToken(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer invalid.jwt.token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_TOKEN_INVALID")
}

func TestAuthMiddleware_Authenticate_ExpiredToken(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	tokens, err := util.GenerateTokenPair(1, "old@example.com", "user", testJWTSecret, -time.Minute, time.Hour)
	require.NoError(t, err)

	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_TOKEN_EXPIRED")
}

func TestAuthMiddleware_Authenticate_RejectsRefreshToken(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	tokens := generateTestTokens(t, 1, "test@example.com", "user")

	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.RefreshToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_Authenticate_RevokedToken(t *testing.T) {
	mr := miniredis.RunT(t)
	redis.SetClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = redis.Close() })

	router, authMiddleware := setupMiddlewareTest()
	token := generateTestToken(t, 1, "test@example.com", "user")
	claims, err := util.ValidateToken(token, testJWTSecret)
	require.NoError(t, err)
	require.NoError(t, redis.BlacklistToken(context.Background(), claims.ID, time.Minute))

	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_TOKEN_REVOKED")
}

func TestAuthMiddleware_RequireRole_Success(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	token := generateTestToken(t, 1, "admin@example.com", "admin")

	router.GET("/admin",
		authMiddleware.Authenticate(),
		authMiddleware.RequireRole(model.RoleAdmin),
		func(c *gin.Context) {
			assert.True(t, IsAdmin(c))
			c.JSON(http.StatusOK, gin.H{"message": "admin access granted"})
		},
	)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_RequireRole_Forbidden(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	token := generateTestToken(t, 1, "user@example.com", "user")

	router.GET("/admin",
		authMiddleware.Authenticate(),
		authMiddleware.RequireRole(model.RoleAdmin),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "admin access granted"})
		},
	)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient permissions")
}

func TestAuthMiddleware_RequireRole_MultipleRoles(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	router.GET("/any",
		authMiddleware.Authenticate(),
		authMiddleware.RequireRole(model.RoleAdmin, model.RoleUser),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "access granted"})
		},
	)

	tests := []struct {
		name           string
		role           string
		expectedStatus int
	}{
		{name: "Admin role", role: "admin", expectedStatus: http.StatusOK},
		{name: "User role", role: "user", expectedStatus: http.StatusOK},
		{name: "Unknown role", role: "guest", expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := generateTestToken(t, 1, "test@example.com", tt.role)

			req := httptest.NewRequest("GET", "/any", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestGetUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	userID, exists := GetUserID(c)
	assert.False(t, exists)
	assert.Equal(t, uint(0), userID)

	c.Set(UserIDKey, uint(123))
	userID, exists = GetUserID(c)
	assert.True(t, exists)
	assert.Equal(t, uint(123), userID)
}

func TestGetUserRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	role, exists := GetUserRole(c)
	assert.False(t, exists)
	assert.Empty(t, role)

	c.Set(UserRoleKey, model.RoleAdmin)
	role, exists = GetUserRole(c)
	assert.True(t, exists)
	assert.Equal(t, model.RoleAdmin, role)
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/storesync/internal/infrastructure/auth"
	"github.com/erp/storesync/internal/infrastructure/config"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:          "test-secret-key-at-least-32-chars",
		Issuer:          "storesync",
		TokenExpiration: 15 * time.Minute,
	})
}

func issueToken(t *testing.T, svc *auth.JWTService, scopes ...auth.Scope) *auth.IssuedToken {
	t.Helper()
	tok, err := svc.Issue("ops-bot", scopes, 0)
	require.NoError(t, err)
	return tok
}

func serve(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type failingBlacklist struct{}

func (failingBlacklist) Revoke(context.Context, string, time.Duration) error { return nil }
func (failingBlacklist) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	tok := issueToken(t, svc, auth.ScopeSyncRead)

	router := gin.New()
	router.Use(JWTAuthMiddleware(svc))
	router.GET("/test", func(c *gin.Context) {
		claims := GetJWTClaims(c)
		require.NotNil(t, claims)
		assert.Equal(t, tok.TokenID, claims.ID)
		assert.Equal(t, "ops-bot", GetOperator(c))
		assert.Equal(t, []auth.Scope{auth.ScopeSyncRead}, c.MustGet(JWTScopesKey))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := serve(router, "/test", tok.Token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	svc := newTestJWTService()

	other := auth.NewJWTService(config.JWTConfig{Secret: "another-secret-key-at-least-32-ch", Issuer: "storesync"})
	foreign, err := other.Issue("ops-bot", nil, 0)
	require.NoError(t, err)

	expired, err := svc.Issue("ops-bot", nil, time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	router := gin.New()
	router.Use(JWTAuthMiddleware(svc))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", "ERR_TOKEN_INVALID"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "ERR_TOKEN_INVALID"},
		{"empty bearer", "Bearer ", "ERR_TOKEN_INVALID"},
		{"garbage", "Bearer not-a-jwt", "ERR_TOKEN_INVALID"},
		{"wrong secret", "Bearer " + foreign.Token, "ERR_TOKEN_INVALID"},
		{"expired", "Bearer " + expired.Token, "ERR_TOKEN_EXPIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}

func TestJWTAuthMiddleware_RevokedToken(t *testing.T) {
	svc := newTestJWTService()
	tok := issueToken(t, svc, auth.ScopeSyncRead)
	blacklist := auth.NewInMemoryTokenBlacklist()
	require.NoError(t, blacklist.Revoke(context.Background(), tok.TokenID, time.Hour))

	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{
		JWTService:     svc,
		TokenBlacklist: blacklist,
	}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := serve(router, "/test", tok.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_TOKEN_REVOKED")
}

func TestJWTAuthMiddleware_BlacklistErrorFailsOpen(t *testing.T) {
	svc := newTestJWTService()
	tok := issueToken(t, svc)

	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{
		JWTService:     svc,
		TokenBlacklist: failingBlacklist{},
	}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := serve(router, "/test", tok.Token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_DefaultSkipPaths(t *testing.T) {
	router := gin.New()
	router.Use(JWTAuthMiddleware(newTestJWTService()))
	for _, path := range []string{"/health", "/health/ready", "/api/v1/webhooks/storefront", "/api/v1/integration/logs"} {
		router.GET(path, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	assert.Equal(t, http.StatusOK, serve(router, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(router, "/health/ready", "").Code)
	assert.Equal(t, http.StatusOK, serve(router, "/api/v1/webhooks/storefront", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/api/v1/integration/logs", "").Code)
}

func TestRequireScope(t *testing.T) {
	svc := newTestJWTService()

	router := gin.New()
	router.Use(JWTAuthMiddleware(svc))
	router.GET("/read", RequireScope(auth.ScopeSyncRead), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/settings", RequireScope(auth.ScopeSettingsWrite), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	reader := issueToken(t, svc, auth.ScopeSyncRead)

	assert.Equal(t, http.StatusOK, serve(router, "/read", reader.Token).Code)

	w := serve(router, "/settings", reader.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_FORBIDDEN")
}

func TestRequireScope_WithoutClaims(t *testing.T) {
	router := gin.New()
	router.GET("/read", RequireScope(auth.ScopeSyncRead), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := serve(router, "/read", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_UNAUTHORIZED")
}

func TestGetJWTClaims_NotFound(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetOperator(c))
}

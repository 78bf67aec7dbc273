package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x2beta/internal/auth"
	"x2beta/internal/config"
	"x2beta/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authCfg() config.AuthConfig {
	return config.AuthConfig{Secret: "test-secret", Issuer: "x2beta", TokenExpiry: time.Hour}
}

func protectedRouter(cfg config.AuthConfig) *gin.Engine {
	r := gin.New()
	r.GET("/protected", middleware.Auth(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"approver": middleware.GetApprover(c),
			"role":     middleware.GetRole(c),
		})
	})
	return r
}

func TestAuth_ValidToken(t *testing.T) {
	cfg := authCfg()
	token, err := auth.IssueToken(cfg, "priya", "finance")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protectedRouter(cfg).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "priya", body["approver"])
	assert.Equal(t, "finance", body["role"])
}

func TestAuth_MissingHeader(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	protectedRouter(authCfg()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_MalformedHeader(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	protectedRouter(authCfg()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_InvalidToken(t *testing.T) {
	other := authCfg()
	other.Secret = "different"
	token, err := auth.IssueToken(other, "priya", "finance")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protectedRouter(authCfg()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

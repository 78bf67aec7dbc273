package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"x2beta/internal/auth"
	"x2beta/internal/config"
)

const (
	ContextKeyApprover = "approver"
	ContextKeyRole     = "role"
	ContextKeyClaims   = "claims"
)

// Auth returns Gin middleware that validates bearer tokens and injects the
// approver identity.
func Auth(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "missing or invalid authorization header"},
			})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.ValidateToken(cfg, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "invalid or expired token"},
			})
			return
		}

		c.Set(ContextKeyApprover, claims.Name)
		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetApprover extracts the approver name from the Gin context.
func GetApprover(c *gin.Context) string {
	val, exists := c.Get(ContextKeyApprover)
	if !exists {
		return ""
	}
	return val.(string)
}

// GetRole extracts the approver role from the Gin context.
func GetRole(c *gin.Context) string {
	val, exists := c.Get(ContextKeyRole)
	if !exists {
		return ""
	}
	return val.(string)
}

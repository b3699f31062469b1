package middleware

import (
	"net/http"
	"strings"

	"github.com/AgriPilot/agripilot-backend/errors"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware extracts the Bearer token, validates it, and stores the
// authenticated user's ID and role in the gin context. WebSocket upgrade
// requests may carry the token in the "token" query parameter instead,
// since browsers cannot set headers on WebSocket connections.
func AuthMiddleware(validator Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger()

		token := bearerToken(c)
		if token == "" && isWebSocketUpgrade(c) {
			token = c.Query("token")
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization required",
			})
			return
		}

		userID, role, err := validator.Validate(token)
		if err != nil {
			log.Warnw("Invalid JWT token",
				"error", err,
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP())

			if strings.Contains(err.Error(), "token expired") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":            "Your session has expired",
					"code":             "token_expired",
					"refresh_required": true,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authentication token",
			})
			return
		}

		if userID == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication system error",
			})
			return
		}

		c.Set(string(UserIDKey), userID)
		c.Set(string(UserRoleKey), role)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated user carries the
// given role claim. It must run after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(string(UserRoleKey)) != role {
			_ = c.Error(errors.Forbidden("Insufficient permissions",
				"This operation requires the "+role+" role"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user's ID from the gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(string(UserIDKey))
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func isWebSocketUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(c.GetHeader("Connection")), "upgrade")
}

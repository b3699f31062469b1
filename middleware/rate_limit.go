package middleware

import (
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/AgriPilot/agripilot-backend/errors"
	"github.com/AgriPilot/agripilot-backend/services"
	"github.com/gin-gonic/gin"
)

// EndpointRateLimiter limits requests per endpoint and caller. Authenticated
// callers are keyed by user ID, anonymous callers by IP.
func EndpointRateLimiter(rateLimiter services.RateLimiterInterface, requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := rateLimitIdentifier(c)
		endpoint := c.Request.Method + ":" + c.FullPath()

		key := fmt.Sprintf("endpoint:%s:%s", endpoint, identifier)
		allowed, retryAfter, err := rateLimiter.CheckLimit(c.Request.Context(), key, requests, window)
		if err != nil {
			// A Redis outage should not take the API down with it.
			c.Next()
			return
		}

		if !allowed {
			setRateLimitHeaders(c, requests, 0, retryAfter)
			_ = c.Error(apperrors.RateLimitExceeded(
				"Too many requests to this endpoint", int(retryAfter.Seconds())))
			c.Abort()
			return
		}

		c.Next()
	}
}

// rateLimitIdentifier returns the caller identity used for rate limit keys.
func rateLimitIdentifier(c *gin.Context) string {
	if userID := c.GetString(string(UserIDKey)); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

func setRateLimitHeaders(c *gin.Context, limit, remaining int, retryAfter time.Duration) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

	if retryAfter > 0 {
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(retryAfter).Unix(), 10))
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	}
}

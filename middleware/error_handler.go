package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/AgriPilot/agripilot-backend/errors"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON error body returned to clients.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ErrorHandler drains gin's error chain after the handler runs and renders
// the last error as a structured JSON response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Capture stack trace before Next() to preserve the full call stack
		stackTrace := debug.Stack()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		log := logger.GetLogger()

		metadata := map[string]interface{}{
			"path":        c.Request.URL.Path,
			"method":      c.Request.Method,
			"client_ip":   c.ClientIP(),
			"stack_trace": string(stackTrace),
		}

		if appError, ok := err.(*errors.AppError); ok {
			statusCode := appError.GetHTTPStatus()

			metadata["error_type"] = string(appError.Type)
			metadata["error_message"] = appError.Message
			if appError.Detail != "" {
				metadata["error_detail"] = appError.Detail
			}
			logger.LogHTTPError(c, err, statusCode, fmt.Sprintf("%s error", appError.Type))

			response := gin.H{
				"type":    string(appError.Type),
				"message": appError.Message,
				"code":    strconv.Itoa(statusCode),
			}

			// Details are only safe to expose for client-correctable errors.
			if appError.Detail != "" && (gin.IsDebugging() ||
				appError.Type == errors.ValidationError ||
				appError.Type == errors.NotFoundError ||
				appError.Type == errors.InvalidSourceTransitionError ||
				appError.Type == errors.RateLimitError) {
				response["details"] = appError.Detail
			}

			c.JSON(statusCode, response)
			return
		}

		if c.Errors.Last().Type == gin.ErrorTypeBind {
			logger.LogHTTPError(c, err, http.StatusBadRequest, "Request binding error")

			response := gin.H{
				"type":    string(errors.ValidationError),
				"message": "Failed to bind request",
				"code":    "400",
			}
			if gin.IsDebugging() {
				response["details"] = err.Error()
			}

			c.JSON(http.StatusBadRequest, response)
			return
		}

		if c.Errors.Last().Type == gin.ErrorTypePublic {
			logger.LogHTTPError(c, err, http.StatusBadRequest, "Public error")

			c.JSON(http.StatusBadRequest, gin.H{
				"type":    string(errors.ValidationError),
				"message": err.Error(),
				"code":    "400",
			})
			return
		}

		log.Errorw("Unhandled error", metadata)
		logger.LogHTTPError(c, err, http.StatusInternalServerError, "Unexpected server error")

		response := gin.H{
			"type":    string(errors.ServerError),
			"message": "Internal Server Error",
			"code":    "500",
		}
		if gin.IsDebugging() {
			response["details"] = err.Error()
		}

		c.JSON(http.StatusInternalServerError, response)
	}
}

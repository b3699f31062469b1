package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/AgriPilot/agripilot-backend/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorTestRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/test", handler)
	return r
}

func doErrorRequest(t *testing.T, r *gin.Engine) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestErrorHandler_AppError(t *testing.T) {
	r := errorTestRouter(func(c *gin.Context) {
		_ = c.Error(apperrors.NotFound("Farm", "farm-9"))
	})

	code, body := doErrorRequest(t, r)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, string(apperrors.NotFoundError), body["type"])
	assert.Equal(t, "404", body["code"])
}

func TestErrorHandler_ValidationDetailExposed(t *testing.T) {
	r := errorTestRouter(func(c *gin.Context) {
		_ = c.Error(apperrors.ValidationFailed("Invalid farm", "name must not be empty"))
	})

	code, body := doErrorRequest(t, r)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "name must not be empty", body["details"])
}

func TestErrorHandler_InternalDetailHidden(t *testing.T) {
	r := errorTestRouter(func(c *gin.Context) {
		_ = c.Error(apperrors.NewDatabaseError(errors.New("pq: connection reset")))
	})

	code, body := doErrorRequest(t, r)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.NotContains(t, body, "details", "database internals must not leak to clients")
}

func TestErrorHandler_QueueFull(t *testing.T) {
	r := errorTestRouter(func(c *gin.Context) {
		_ = c.Error(apperrors.PipelineQueueFull())
	})

	code, body := doErrorRequest(t, r)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, string(apperrors.QueueFullError), body["type"])
}

func TestErrorHandler_UnknownError(t *testing.T) {
	r := errorTestRouter(func(c *gin.Context) {
		_ = c.Error(errors.New("something unexpected"))
	})

	code, body := doErrorRequest(t, r)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal Server Error", body["message"])
}

func TestErrorHandler_BindError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.POST("/test", func(c *gin.Context) {
		var req struct {
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err).SetType(gin.ErrorTypeBind)
		}
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to bind request")
}

func TestErrorHandler_NoErrorPassesThrough(t *testing.T) {
	r := errorTestRouter(func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	userID string
	role   string
	err    error
}

func (s *stubValidator) Validate(string) (string, string, error) {
	return s.userID, s.role, s.err
}

func authTestRouter(v Validator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(v))
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": GetUserID(c),
			"role":    c.GetString(string(UserRoleKey)),
		})
	})
	return r
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	r := authTestRouter(&stubValidator{userID: "user-1"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authorization required")
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	r := authTestRouter(&stubValidator{userID: "user-1", role: "authenticated"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
	assert.Contains(t, w.Body.String(), "authenticated")
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	r := authTestRouter(&stubValidator{err: ErrTokenExpired})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token_expired")
	assert.Contains(t, w.Body.String(), "refresh_required")
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	r := authTestRouter(&stubValidator{err: errors.New("bad signature")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer junk")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid authentication token")
}

func TestAuthMiddleware_WebSocketQueryToken(t *testing.T) {
	r := authTestRouter(&stubValidator{userID: "user-2"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected?token=ws-token", nil)
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-2")
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.Use(func(c *gin.Context) {
		c.Set(string(UserIDKey), "user-1")
		c.Set(string(UserRoleKey), "authenticated")
	})
	r.GET("/admin", RequireRole("service_role"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/user", RequireRole("authenticated"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

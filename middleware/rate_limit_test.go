package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) CheckLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, time.Duration, error) {
	args := m.Called(ctx, key, limit, duration)
	return args.Bool(0), args.Get(1).(time.Duration), args.Error(2)
}

func rateLimitTestRouter(limiter *MockRateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.POST("/farms/:id/pipeline",
		EndpointRateLimiter(limiter, 5, time.Minute),
		func(c *gin.Context) {
			c.Status(http.StatusAccepted)
		})
	return r
}

func TestEndpointRateLimiter_Allowed(t *testing.T) {
	limiter := new(MockRateLimiter)
	limiter.On("CheckLimit", mock.Anything, mock.Anything, 5, time.Minute).
		Return(true, time.Duration(0), nil)

	r := rateLimitTestRouter(limiter)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/farms/f1/pipeline", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	limiter.AssertExpectations(t)
}

func TestEndpointRateLimiter_Blocked(t *testing.T) {
	limiter := new(MockRateLimiter)
	limiter.On("CheckLimit", mock.Anything, mock.Anything, 5, time.Minute).
		Return(false, 30*time.Second, nil)

	r := rateLimitTestRouter(limiter)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/farms/f1/pipeline", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestEndpointRateLimiter_RedisDownFailsOpen(t *testing.T) {
	limiter := new(MockRateLimiter)
	limiter.On("CheckLimit", mock.Anything, mock.Anything, 5, time.Minute).
		Return(false, time.Duration(0), assert.AnError)

	r := rateLimitTestRouter(limiter)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/farms/f1/pipeline", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRateLimitIdentifier_PrefersUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Contains(t, rateLimitIdentifier(c), "ip:")

	c.Set(string(UserIDKey), "user-7")
	assert.Equal(t, "user:user-7", rateLimitIdentifier(c))
}

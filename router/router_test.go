package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AgriPilot/agripilot-backend/config"
	"github.com/AgriPilot/agripilot-backend/handlers"
	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/models"
	"github.com/AgriPilot/agripilot-backend/services"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.IsTest = true
}

type stubValidator struct{ role string }

func (s *stubValidator) Validate(string) (string, string, error) {
	return "user-1", s.role, nil
}

type allowAllLimiter struct{}

func (allowAllLimiter) CheckLimit(context.Context, string, int, time.Duration) (bool, time.Duration, error) {
	return true, 0, nil
}

type stubRunStore struct{}

func (stubRunStore) CreateRun(context.Context, *types.PipelineRun) (string, error) {
	return "run-1", nil
}

func (stubRunStore) GetRun(context.Context, string) (*types.PipelineRun, error) {
	return nil, store.ErrNotFound
}

func (stubRunStore) UpdateRun(context.Context, *types.PipelineRun) error { return nil }

func (stubRunStore) ListRuns(context.Context, types.PipelineKind, int, int) ([]*types.PipelineRun, int, error) {
	return nil, 0, nil
}

type acceptAllPool struct{}

func (acceptAllPool) Submit(services.Job) bool { return true }

func newTestEngine(role string) *gin.Engine {
	pipelineModel := models.NewPipelineModel(stubRunStore{}, nil)
	pipelineService := services.NewPipelineService(
		pipelineModel, nil, nil, nil, nil, nil, nil, nil, acceptAllPool{})

	return SetupRouter(Dependencies{
		Config:          &config.Config{Server: config.ServerConfig{AllowedOrigins: []string{"*"}}},
		JWTValidator:    &stubValidator{role: role},
		RateLimiter:     allowAllLimiter{},
		PipelineHandler: handlers.NewPipelineHandler(pipelineService, pipelineModel),
		Logger:          logger.GetLogger(),
	})
}

func doAuthedPost(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Authorization", "Bearer test-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPurgeRouteRequiresAdminRole(t *testing.T) {
	r := newTestEngine("agent")

	w := doAuthedPost(r, "/v1/farms/farm-1/purge")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient permissions")
}

func TestPurgeRouteAllowsAdmin(t *testing.T) {
	r := newTestEngine("admin")

	w := doAuthedPost(r, "/v1/farms/farm-1/purge")
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestSubsidySyncRouteRequiresAdminRole(t *testing.T) {
	r := newTestEngine("agent")

	w := doAuthedPost(r, "/v1/subsidies/sync")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

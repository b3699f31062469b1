package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/middleware"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.IsTest = true
}

// ---------------------------------------------------------------------------
// Store mocks
// ---------------------------------------------------------------------------

type MockFarmStore struct {
	mock.Mock
}

func (m *MockFarmStore) CreateFarm(ctx context.Context, farm *types.Farm) (string, error) {
	args := m.Called(ctx, farm)
	return args.String(0), args.Error(1)
}

func (m *MockFarmStore) GetFarm(ctx context.Context, id string) (*types.Farm, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Farm), args.Error(1)
}

func (m *MockFarmStore) ListFarms(ctx context.Context, ownerID string, limit, offset int) ([]*types.Farm, int, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*types.Farm), args.Int(1), args.Error(2)
}

func (m *MockFarmStore) UpdateFarm(ctx context.Context, id string, update *types.FarmUpdate) (*types.Farm, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Farm), args.Error(1)
}

func (m *MockFarmStore) DeleteFarm(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockExtractionStore struct {
	mock.Mock
}

func (m *MockExtractionStore) BeginTx(ctx context.Context) (store.Transaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(store.Transaction), args.Error(1)
}

func (m *MockExtractionStore) CreateExtraction(ctx context.Context, ext *types.Extraction) (string, error) {
	args := m.Called(ctx, ext)
	return args.String(0), args.Error(1)
}

func (m *MockExtractionStore) GetExtraction(ctx context.Context, id string) (*types.Extraction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Extraction), args.Error(1)
}

func (m *MockExtractionStore) ListByFarm(ctx context.Context, farmID string, limit, offset int) ([]*types.Extraction, int, error) {
	args := m.Called(ctx, farmID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*types.Extraction), args.Int(1), args.Error(2)
}

func (m *MockExtractionStore) UpdateFields(ctx context.Context, id string, fields []types.ExtractedField) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockExtractionStore) UpdateStatus(ctx context.Context, id string, status types.ExtractionStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockExtractionStore) MarkReviewed(ctx context.Context, id, reviewerID string) error {
	args := m.Called(ctx, id, reviewerID)
	return args.Error(0)
}

func (m *MockExtractionStore) AddAudit(ctx context.Context, audit *types.FieldAudit) error {
	args := m.Called(ctx, audit)
	return args.Error(0)
}

func (m *MockExtractionStore) ListAudits(ctx context.Context, extractionID string) ([]*types.FieldAudit, error) {
	args := m.Called(ctx, extractionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.FieldAudit), args.Error(1)
}

func (m *MockExtractionStore) DeleteByFarm(ctx context.Context, farmID string) (int64, error) {
	args := m.Called(ctx, farmID)
	return args.Get(0).(int64), args.Error(1)
}

type MockPipelineStore struct {
	mock.Mock
}

func (m *MockPipelineStore) CreateRun(ctx context.Context, run *types.PipelineRun) (string, error) {
	args := m.Called(ctx, run)
	return args.String(0), args.Error(1)
}

func (m *MockPipelineStore) GetRun(ctx context.Context, id string) (*types.PipelineRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PipelineRun), args.Error(1)
}

func (m *MockPipelineStore) UpdateRun(ctx context.Context, run *types.PipelineRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockPipelineStore) ListRuns(ctx context.Context, kind types.PipelineKind, limit, offset int) ([]*types.PipelineRun, int, error) {
	args := m.Called(ctx, kind, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*types.PipelineRun), args.Int(1), args.Error(2)
}

// ---------------------------------------------------------------------------
// Router helpers
// ---------------------------------------------------------------------------

const testUserID = "user-1"

// newHandlerTestRouter builds a router with the error handler installed and
// an auth stub that sets the test user on every request.
func newHandlerTestRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		c.Set(string(middleware.UserIDKey), testUserID)
		c.Next()
	})
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

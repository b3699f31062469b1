package models

import (
	"context"
	"testing"

	apperrors "github.com/AgriPilot/agripilot-backend/errors"
	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
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
		return nil, 0, args.Error(2)
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
		return nil, 0, args.Error(2)
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

func reviewExtraction() *types.Extraction {
	return &types.Extraction{
		ID:     "ext-1",
		FarmID: "farm-1",
		Status: types.ExtractionStatusCompleted,
		Fields: []types.ExtractedField{
			{FieldName: "farmName", Value: "Ferme du Vallon", Confidence: 0.95, Source: types.SourceAIClassified},
			{FieldName: "totalHectares", Value: "38", Confidence: 0.72, Source: types.SourceExtracted},
			{FieldName: "contactEmail", Value: "not-an-email", Confidence: 0.55, Source: types.SourceAIClassified},
			{FieldName: "mystery", Value: "???", Confidence: 0.31, Source: types.SourceExtracted},
		},
	}
}

func newTestExtractionModel(extStore *MockExtractionStore) *ExtractionModel {
	return NewExtractionModel(extStore, nil, nil, nil)
}

func TestAcceptField(t *testing.T) {
	extStore := new(MockExtractionStore)
	em := newTestExtractionModel(extStore)

	ext := reviewExtraction()
	ext.Fields[1].Rejected = true

	extStore.On("GetExtraction", mock.Anything, "ext-1").Return(ext, nil)
	extStore.On("UpdateFields", mock.Anything, "ext-1", mock.Anything).Return(nil)
	extStore.On("AddAudit", mock.Anything, mock.MatchedBy(func(a *types.FieldAudit) bool {
		return a.Action == types.AuditActionAccept && a.FieldName == "totalHectares"
	})).Return(nil)

	got, err := em.AcceptField(context.Background(), "ext-1", "totalHectares", "reviewer-1")
	require.NoError(t, err)

	field := got.FieldByName("totalHectares")
	assert.True(t, field.Accepted)
	assert.False(t, field.Rejected, "accepting must clear a previous rejection")
	extStore.AssertExpectations(t)
}

func TestEditFieldSnapshotsOriginal(t *testing.T) {
	extStore := new(MockExtractionStore)
	em := newTestExtractionModel(extStore)

	ext := reviewExtraction()
	extStore.On("GetExtraction", mock.Anything, "ext-1").Return(ext, nil)
	extStore.On("UpdateFields", mock.Anything, "ext-1", mock.Anything).Return(nil)
	extStore.On("AddAudit", mock.Anything, mock.Anything).Return(nil)

	got, err := em.EditField(context.Background(), "ext-1", "totalHectares", "reviewer-1",
		&types.FieldEdit{Value: "40", Notes: "cadastre says 40"})
	require.NoError(t, err)

	field := got.FieldByName("totalHectares")
	assert.Equal(t, "40", field.Value)
	assert.Equal(t, types.SourceUserCorrected, field.Source)
	require.NotNil(t, field.OriginalValue)
	assert.Equal(t, "38", *field.OriginalValue)
	assert.Equal(t, types.SourceExtracted, field.OriginalSource)
	assert.True(t, field.Modified)
	assert.True(t, field.Accepted)

	// A second edit keeps the first snapshot.
	got, err = em.EditField(context.Background(), "ext-1", "totalHectares", "reviewer-1",
		&types.FieldEdit{Value: "41"})
	require.NoError(t, err)

	field = got.FieldByName("totalHectares")
	assert.Equal(t, "41", field.Value)
	assert.Equal(t, "38", *field.OriginalValue)
	assert.Equal(t, types.SourceExtracted, field.OriginalSource)
}

func TestEditFieldRejectsEmptyValue(t *testing.T) {
	em := newTestExtractionModel(new(MockExtractionStore))

	_, err := em.EditField(context.Background(), "ext-1", "totalHectares", "reviewer-1",
		&types.FieldEdit{Value: "   "})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ValidationError, appErr.Type)
}

func TestRevertFieldRestoresValueAndSource(t *testing.T) {
	extStore := new(MockExtractionStore)
	em := newTestExtractionModel(extStore)

	ext := reviewExtraction()
	original := "38"
	ext.Fields[1].Value = "40"
	ext.Fields[1].Source = types.SourceUserCorrected
	ext.Fields[1].OriginalValue = &original
	ext.Fields[1].OriginalSource = types.SourceExtracted
	ext.Fields[1].Modified = true
	ext.Fields[1].Accepted = true

	extStore.On("GetExtraction", mock.Anything, "ext-1").Return(ext, nil)
	extStore.On("UpdateFields", mock.Anything, "ext-1", mock.Anything).Return(nil)
	extStore.On("AddAudit", mock.Anything, mock.MatchedBy(func(a *types.FieldAudit) bool {
		return a.Action == types.AuditActionRevert
	})).Return(nil)

	got, err := em.RevertField(context.Background(), "ext-1", "totalHectares", "reviewer-1")
	require.NoError(t, err)

	field := got.FieldByName("totalHectares")
	assert.Equal(t, "38", field.Value)
	assert.Equal(t, types.SourceExtracted, field.Source)
	assert.Nil(t, field.OriginalValue)
	assert.False(t, field.Modified)
	assert.False(t, field.Accepted)
}

func TestRevertUneditedFieldFails(t *testing.T) {
	extStore := new(MockExtractionStore)
	em := newTestExtractionModel(extStore)

	extStore.On("GetExtraction", mock.Anything, "ext-1").Return(reviewExtraction(), nil)

	_, err := em.RevertField(context.Background(), "ext-1", "farmName", "reviewer-1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.InvalidSourceTransitionError, appErr.Type)
}

func TestBulkAcceptByTier(t *testing.T) {
	extStore := new(MockExtractionStore)
	em := newTestExtractionModel(extStore)

	ext := reviewExtraction()
	// Earlier decisions are overridden: the operation accepts the exact
	// confidence subset, including edited and previously rejected fields.
	ext.Fields[0].Modified = true
	ext.Fields[1].Rejected = true

	extStore.On("GetExtraction", mock.Anything, "ext-1").Return(ext, nil)
	extStore.On("UpdateFields", mock.Anything, "ext-1", mock.Anything).Return(nil)
	extStore.On("AddAudit", mock.Anything, mock.MatchedBy(func(a *types.FieldAudit) bool {
		return a.Action == types.AuditActionBulkAccept
	})).Return(nil)

	got, changed, err := em.BulkAcceptByTier(context.Background(), "ext-1", types.TierMedium, "reviewer-1")
	require.NoError(t, err)

	// Medium floor is 0.5: farmName (0.95), totalHectares (0.72) and
	// contactEmail (0.55) qualify; the 0.31 field does not.
	assert.Equal(t, 3, changed)
	assert.True(t, got.FieldByName("farmName").Accepted)
	assert.True(t, got.FieldByName("totalHectares").Accepted)
	assert.False(t, got.FieldByName("totalHectares").Rejected)
	assert.True(t, got.FieldByName("contactEmail").Accepted)
	assert.False(t, got.FieldByName("mystery").Accepted)
}

func TestBulkRejectByTierOverridesEarlierAccepts(t *testing.T) {
	extStore := new(MockExtractionStore)
	em := newTestExtractionModel(extStore)

	ext := reviewExtraction()
	ext.Fields[3].Accepted = true // reviewer accepted the 0.31 field by hand

	extStore.On("GetExtraction", mock.Anything, "ext-1").Return(ext, nil)
	extStore.On("UpdateFields", mock.Anything, "ext-1", mock.Anything).Return(nil)
	extStore.On("AddAudit", mock.Anything, mock.Anything).Return(nil)

	got, changed, err := em.BulkRejectByTier(context.Background(), "ext-1", types.TierLow, "reviewer-1")
	require.NoError(t, err)

	// Low ceiling is 0.5: only mystery (0.31) is below it, and the earlier
	// accept does not exempt it.
	assert.Equal(t, 1, changed)
	mystery := got.FieldByName("mystery")
	assert.True(t, mystery.Rejected)
	assert.False(t, mystery.Accepted)
	assert.False(t, got.FieldByName("totalHectares").Rejected)
	assert.False(t, got.FieldByName("contactEmail").Rejected)
	assert.False(t, got.FieldByName("farmName").Rejected)
}

func TestBulkAcceptNoChangesSkipsPersist(t *testing.T) {
	extStore := new(MockExtractionStore)
	em := newTestExtractionModel(extStore)

	ext := reviewExtraction()
	for i := range ext.Fields {
		ext.Fields[i].Accepted = true
	}
	extStore.On("GetExtraction", mock.Anything, "ext-1").Return(ext, nil)

	_, changed, err := em.BulkAcceptByTier(context.Background(), "ext-1", types.TierLow, "reviewer-1")
	require.NoError(t, err)
	assert.Zero(t, changed)
	extStore.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestFilterByTier(t *testing.T) {
	extStore := new(MockExtractionStore)
	em := newTestExtractionModel(extStore)

	ext := reviewExtraction()
	ext.Fields[1].Accepted = true
	extStore.On("GetExtraction", mock.Anything, "ext-1").Return(ext, nil)

	fields, err := em.FilterByTier(context.Background(), "ext-1", types.TierMedium)
	require.NoError(t, err)

	require.Len(t, fields, 2)
	for _, f := range fields {
		assert.Equal(t, types.TierMedium, f.Tier())
	}
	// Filtering is read-only: flags come back untouched.
	assert.True(t, fields[0].Accepted || fields[1].Accepted)
}

func TestSaveCorrections(t *testing.T) {
	extStore := new(MockExtractionStore)
	farmStore := new(MockFarmStore)
	farmModel := NewFarmModel(farmStore)
	em := NewExtractionModel(extStore, farmModel, nil, nil)

	ext := reviewExtraction()
	ext.Fields[0].Accepted = true // farmName -> name
	ext.Fields[1].Accepted = true // totalHectares -> total_hectares
	ext.Fields[2].Accepted = true // contactEmail, invalid, must be dropped
	ext.Fields[3].Accepted = true // mystery, unknown, must be dropped

	// The assigned reviewer does not own the farm; the save must still
	// apply their corrections.
	farm := &types.Farm{ID: "farm-1", OwnerID: "owner-1", Name: "Ferme du Vallon"}

	extStore.On("GetExtraction", mock.Anything, "ext-1").Return(ext, nil)
	farmStore.On("UpdateFarm", mock.Anything, "farm-1", mock.MatchedBy(func(u *types.FarmUpdate) bool {
		return u.Name != nil && *u.Name == "Ferme du Vallon" &&
			u.TotalHectares != nil && u.ContactEmail == nil
	})).Return(farm, nil)
	extStore.On("MarkReviewed", mock.Anything, "ext-1", "reviewer-1").Return(nil)
	extStore.On("AddAudit", mock.Anything, mock.MatchedBy(func(a *types.FieldAudit) bool {
		return a.Action == types.AuditActionSave
	})).Return(nil)

	result, err := em.SaveCorrections(context.Background(), "ext-1", "reviewer-1")
	require.NoError(t, err)

	assert.Len(t, result.Applied, 2)
	require.Len(t, result.Dropped, 2)
	reasons := map[string]string{}
	for _, d := range result.Dropped {
		reasons[d.Key] = string(d.Reason)
	}
	assert.Equal(t, "invalid_email", reasons["contactEmail"])
	assert.Equal(t, "unknown_field", reasons["mystery"])
	farmStore.AssertExpectations(t)
}

func TestSaveCorrectionsNothingAccepted(t *testing.T) {
	extStore := new(MockExtractionStore)
	em := newTestExtractionModel(extStore)

	extStore.On("GetExtraction", mock.Anything, "ext-1").Return(reviewExtraction(), nil)

	_, err := em.SaveCorrections(context.Background(), "ext-1", "reviewer-1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ValidationError, appErr.Type)
}

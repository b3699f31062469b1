package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockExtractionStore(t *testing.T) (*ExtractionStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewExtractionStore(mock), mock
}

func testExtraction() *types.Extraction {
	return &types.Extraction{
		ID:                uuid.NewString(),
		DocumentID:        uuid.NewString(),
		FarmID:            uuid.NewString(),
		Status:            types.ExtractionStatusCompleted,
		OverallConfidence: 0.82,
		Fields: []types.ExtractedField{
			{FieldName: "name", Value: "Ferme du Vallon", Confidence: 0.95, Source: types.SourceAIClassified},
			{FieldName: "total_hectares", Value: "38", Confidence: 0.61, Source: types.SourceExtracted},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestExtractionStore_CreateExtraction(t *testing.T) {
	s, mock := newMockExtractionStore(t)
	ext := testExtraction()

	fieldsJSON, err := json.Marshal(ext.Fields)
	require.NoError(t, err)

	mock.ExpectQuery(`INSERT INTO extractions`).
		WithArgs(ext.DocumentID, ext.FarmID, ext.Status, ext.OverallConfidence, fieldsJSON, ext.Error).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(ext.ID))

	id, err := s.CreateExtraction(context.Background(), ext)
	require.NoError(t, err)
	assert.Equal(t, ext.ID, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtractionStore_GetExtraction(t *testing.T) {
	s, mock := newMockExtractionStore(t)
	ext := testExtraction()

	t.Run("decodes the field set", func(t *testing.T) {
		fieldsJSON, err := json.Marshal(ext.Fields)
		require.NoError(t, err)

		rows := pgxmock.NewRows([]string{
			"id", "document_id", "farm_id", "status", "overall_confidence",
			"fields", "error", "reviewed_by", "reviewed_at", "created_at", "updated_at",
		}).AddRow(
			ext.ID, ext.DocumentID, ext.FarmID, ext.Status, ext.OverallConfidence,
			fieldsJSON, "", nil, nil, ext.CreatedAt, ext.UpdatedAt,
		)

		mock.ExpectQuery(`SELECT (.+) FROM extractions WHERE id = \$1`).
			WithArgs(ext.ID).
			WillReturnRows(rows)

		got, err := s.GetExtraction(context.Background(), ext.ID)
		require.NoError(t, err)
		require.Len(t, got.Fields, 2)
		assert.Equal(t, "name", got.Fields[0].FieldName)
		assert.Equal(t, types.SourceAIClassified, got.Fields[0].Source)
		assert.Nil(t, got.ReviewedBy)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM extractions WHERE id = \$1`).
			WithArgs("missing").
			WillReturnRows(pgxmock.NewRows([]string{"id"}))

		_, err := s.GetExtraction(context.Background(), "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestExtractionStore_UpdateFields(t *testing.T) {
	s, mock := newMockExtractionStore(t)
	ext := testExtraction()

	ext.Fields[0].Accepted = true
	fieldsJSON, err := json.Marshal(ext.Fields)
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE extractions SET fields = \$1`).
		WithArgs(fieldsJSON, ext.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateFields(context.Background(), ext.ID, ext.Fields))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtractionStore_UpdateStatus(t *testing.T) {
	s, mock := newMockExtractionStore(t)

	t.Run("marks failed with error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE extractions SET status = \$1`).
			WithArgs(types.ExtractionStatusFailed, "ocr timeout", "ext-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, s.UpdateStatus(context.Background(), "ext-1", types.ExtractionStatusFailed, "ocr timeout"))
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(`UPDATE extractions SET status = \$1`).
			WithArgs(types.ExtractionStatusCompleted, "", "missing").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t,
			s.UpdateStatus(context.Background(), "missing", types.ExtractionStatusCompleted, ""),
			store.ErrNotFound)
	})
}

func TestExtractionStore_AddAudit(t *testing.T) {
	s, mock := newMockExtractionStore(t)

	audit := &types.FieldAudit{
		ExtractionID: "ext-1",
		FieldName:    "total_hectares",
		Action:       types.AuditActionEdit,
		OldValue:     "38",
		NewValue:     "40",
		OldSource:    types.SourceExtracted,
		NewSource:    types.SourceUserCorrected,
		ActorID:      "reviewer-1",
	}

	mock.ExpectExec(`INSERT INTO field_audits`).
		WithArgs(audit.ExtractionID, audit.FieldName, audit.Action, audit.OldValue,
			audit.NewValue, audit.OldSource, audit.NewSource, audit.ActorID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.AddAudit(context.Background(), audit))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtractionStore_DeleteByFarm(t *testing.T) {
	s, mock := newMockExtractionStore(t)

	mock.ExpectExec(`DELETE FROM field_audits`).
		WithArgs("farm-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectExec(`DELETE FROM extractions`).
		WithArgs("farm-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.DeleteByFarm(context.Background(), "farm-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestExtractionStore_BeginTx(t *testing.T) {
	s, mock := newMockExtractionStore(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	tx, err := s.BeginTx(context.Background())
	require.NoError(t, err)

	_, err = s.BeginTx(context.Background())
	assert.Error(t, err, "second BeginTx on the same store must fail")

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

package services

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportFixture() *farmExport {
	deadline := time.Date(2026, 11, 15, 0, 0, 0, 0, time.UTC)
	return &farmExport{
		Farm: &types.Farm{
			ID:            "farm-1",
			Name:          "Ferme des Lilas",
			Region:        "Occitanie",
			LegalStatus:   "EARL",
			TotalHectares: decimal.NewFromFloat(42.5),
			LandUseTypes:  []string{"arable", "vineyard"},
			ContactEmail:  "contact@lilas.fr",
		},
		Extractions: []*types.Extraction{
			{
				ID:     "ext-1",
				FarmID: "farm-1",
				Status: types.ExtractionStatusCompleted,
				Fields: []types.ExtractedField{
					{FieldName: "farm_name", Value: "Ferme des Lilas", Confidence: 0.95, Source: types.SourceAIClassified, Accepted: true},
					{FieldName: "total_hectares", Value: "42.5", Confidence: 0.61, Source: types.SourceExtracted},
				},
			},
		},
		Matches: []*types.SubsidyMatch{
			{
				ID:     "match-1",
				FarmID: "farm-1",
				Score:  0.87,
				Subsidy: &types.Subsidy{
					Code:          "FAM-2026-001",
					Title:         "Aide conversion bio",
					Agency:        "FranceAgriMer",
					FundingAmount: decimal.NewFromInt(15000),
					Currency:      "EUR",
					Deadline:      &deadline,
				},
			},
			// Matches without a hydrated subsidy are skipped in tabular output.
			{ID: "match-2", FarmID: "farm-1", Score: 0.4},
		},
		ExportedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestExportFormatValid(t *testing.T) {
	assert.True(t, ExportJSON.Valid())
	assert.True(t, ExportCSV.Valid())
	assert.True(t, ExportXLSX.Valid())
	assert.False(t, ExportFormat("pdf").Valid())
	assert.Equal(t, "text/csv", ExportCSV.ContentType())
}

func TestFieldRows(t *testing.T) {
	rows := fieldRows(exportFixture())

	require.Len(t, rows, 3)
	assert.Equal(t, "extraction_id", rows[0][0])
	assert.Equal(t, []string{
		"ext-1", "farm_name", "Ferme des Lilas", "0.9500", "high",
		"ai_classified", "true", "false", "false", "",
	}, rows[1])
	assert.Equal(t, "medium", rows[2][4])
}

func TestMatchRowsSkipsUnhydrated(t *testing.T) {
	rows := matchRows(exportFixture())

	require.Len(t, rows, 2, "header plus one hydrated match")
	assert.Equal(t, []string{
		"FAM-2026-001", "Aide conversion bio", "FranceAgriMer", "0.870", "15000", "EUR", "2026-11-15",
	}, rows[1])
}

func TestRenderCSV(t *testing.T) {
	svc := &ExportService{}
	data, err := svc.renderCSV(exportFixture())
	require.NoError(t, err)

	sections := strings.SplitN(string(data), "\n\n", 2)
	require.Len(t, sections, 2, "field rows and match rows separated by a blank line")

	fields, err := csv.NewReader(strings.NewReader(sections[0])).ReadAll()
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, "farm_name", fields[1][1])

	matches, err := csv.NewReader(strings.NewReader(sections[1])).ReadAll()
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "subsidy_code", matches[0][0])
}

func TestRenderXLSX(t *testing.T) {
	svc := &ExportService{}
	data, err := svc.renderXLSX(exportFixture())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Profile", "Fields", "Matches"}, f.GetSheetList())

	name, err := f.GetCellValue("Profile", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Ferme des Lilas", name)

	field, err := f.GetCellValue("Fields", "B2")
	require.NoError(t, err)
	assert.Equal(t, "farm_name", field)
}

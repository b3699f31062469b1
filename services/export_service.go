package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/models"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ContentType returns the MIME type for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportCSV:
		return "text/csv"
	case ExportXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Valid reports whether f is a supported format.
func (f ExportFormat) Valid() bool {
	switch f {
	case ExportJSON, ExportCSV, ExportXLSX:
		return true
	}
	return false
}

// ExportService produces farm data exports: the profile, its extraction
// field decisions, and its subsidy matches.
type ExportService struct {
	farmModel       *models.FarmModel
	extractionModel *models.ExtractionModel
	subsidyModel    *models.SubsidyModel
	logger          *zap.SugaredLogger
}

func NewExportService(farmModel *models.FarmModel, extractionModel *models.ExtractionModel, subsidyModel *models.SubsidyModel) *ExportService {
	return &ExportService{
		farmModel:       farmModel,
		extractionModel: extractionModel,
		subsidyModel:    subsidyModel,
		logger:          logger.GetLogger().Named("export"),
	}
}

// farmExport is the assembled export document.
type farmExport struct {
	Farm        *types.Farm           `json:"farm"`
	Extractions []*types.Extraction   `json:"extractions"`
	Matches     []*types.SubsidyMatch `json:"matches"`
	ExportedAt  time.Time             `json:"exportedAt"`
}

// ExportFarm renders one farm's data in the requested format and returns
// the bytes plus a suggested file name.
func (s *ExportService) ExportFarm(ctx context.Context, farmID string, format ExportFormat) ([]byte, string, error) {
	start := time.Now()

	farm, err := s.farmModel.GetFarm(ctx, farmID)
	if err != nil {
		return nil, "", err
	}

	extractions, _, err := s.extractionModel.ListByFarm(ctx, farmID, 100, 0)
	if err != nil {
		return nil, "", err
	}

	matches, err := s.subsidyModel.ListMatches(ctx, farmID)
	if err != nil {
		return nil, "", err
	}

	doc := &farmExport{
		Farm:        farm,
		Extractions: extractions,
		Matches:     matches,
		ExportedAt:  time.Now().UTC(),
	}

	var data []byte
	switch format {
	case ExportCSV:
		data, err = s.renderCSV(doc)
	case ExportXLSX:
		data, err = s.renderXLSX(doc)
	default:
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return nil, "", err
	}

	s.logger.Infow("Farm export rendered",
		"farmId", farmID,
		"format", format,
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds())

	name := fmt.Sprintf("farm-%s-%s.%s", farmID, time.Now().UTC().Format("20060102"), format)
	return data, name, nil
}

// fieldRows flattens every extraction field into one row per field.
func fieldRows(doc *farmExport) [][]string {
	rows := [][]string{{
		"extraction_id", "field_name", "value", "confidence", "tier",
		"source", "accepted", "rejected", "modified", "notes",
	}}
	for _, ext := range doc.Extractions {
		for _, f := range ext.Fields {
			rows = append(rows, []string{
				ext.ID,
				f.FieldName,
				f.Value,
				strconv.FormatFloat(f.Confidence, 'f', 4, 64),
				string(f.Tier()),
				string(f.Source),
				strconv.FormatBool(f.Accepted),
				strconv.FormatBool(f.Rejected),
				strconv.FormatBool(f.Modified),
				f.Notes,
			})
		}
	}
	return rows
}

func matchRows(doc *farmExport) [][]string {
	rows := [][]string{{
		"subsidy_code", "title", "agency", "score", "funding_amount", "currency", "deadline",
	}}
	for _, m := range doc.Matches {
		if m.Subsidy == nil {
			continue
		}
		deadline := ""
		if m.Subsidy.Deadline != nil {
			deadline = m.Subsidy.Deadline.Format("2006-01-02")
		}
		rows = append(rows, []string{
			m.Subsidy.Code,
			m.Subsidy.Title,
			m.Subsidy.Agency,
			strconv.FormatFloat(m.Score, 'f', 3, 64),
			m.Subsidy.FundingAmount.String(),
			m.Subsidy.Currency,
			deadline,
		})
	}
	return rows
}

// renderCSV writes the extraction field rows; CSV has no multi-sheet
// concept, so matches are appended after a blank line with their own header.
func (s *ExportService) renderCSV(doc *farmExport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.WriteAll(fieldRows(doc)); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	buf.WriteString("\n")
	if err := w.WriteAll(matchRows(doc)); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ExportService) renderXLSX(doc *farmExport) ([]byte, error) {
	f := excelize.NewFile()

	writeSheet := func(sheet string, rows [][]string) error {
		if index, _ := f.GetSheetIndex(sheet); index == -1 {
			if _, err := f.NewSheet(sheet); err != nil {
				return err
			}
		}
		for r, row := range rows {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := writeSheet("Profile", [][]string{
		{"field", "value"},
		{"name", doc.Farm.Name},
		{"region", doc.Farm.Region},
		{"legal_status", doc.Farm.LegalStatus},
		{"total_hectares", doc.Farm.TotalHectares.String()},
		{"land_use_types", strings.Join(doc.Farm.LandUseTypes, ", ")},
		{"contact_email", doc.Farm.ContactEmail},
	}); err != nil {
		return nil, err
	}
	if err := writeSheet("Fields", fieldRows(doc)); err != nil {
		return nil, err
	}
	if err := writeSheet("Matches", matchRows(doc)); err != nil {
		return nil, err
	}

	// Drop the default sheet so Profile opens first.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ExtractionStore implements store.ExtractionStore using PostgreSQL. The
// working field set is stored as a jsonb column so the reconciliation flags
// travel with the fields.
type ExtractionStore struct {
	db DB
	tx pgx.Tx
}

// NewExtractionStore creates a new ExtractionStore instance.
func NewExtractionStore(db DB) *ExtractionStore {
	return &ExtractionStore{db: db}
}

// BeginTx starts a new database transaction.
func (s *ExtractionStore) BeginTx(ctx context.Context) (store.Transaction, error) {
	if s.tx != nil {
		return nil, errors.New("transaction already started")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}

	s.tx = tx
	return &Transaction{tx: tx}, nil
}

// CreateExtraction inserts an extraction with its initial field set.
func (s *ExtractionStore) CreateExtraction(ctx context.Context, ext *types.Extraction) (string, error) {
	fieldsJSON, err := json.Marshal(ext.Fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}

	query := `
		INSERT INTO extractions (document_id, farm_id, status, overall_confidence, fields, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id string
	err = s.queryRow(ctx, query,
		ext.DocumentID,
		ext.FarmID,
		ext.Status,
		ext.OverallConfidence,
		fieldsJSON,
		ext.Error,
	).Scan(&id)
	if err != nil {
		return "", err
	}

	return id, nil
}

// GetExtraction retrieves an extraction and decodes its field set.
func (s *ExtractionStore) GetExtraction(ctx context.Context, id string) (*types.Extraction, error) {
	query := `
		SELECT id, document_id, farm_id, status, overall_confidence, fields, error, reviewed_by, reviewed_at, created_at, updated_at
		FROM extractions
		WHERE id = $1`

	ext := &types.Extraction{}
	var fieldsJSON []byte
	err := s.queryRow(ctx, query, id).Scan(
		&ext.ID,
		&ext.DocumentID,
		&ext.FarmID,
		&ext.Status,
		&ext.OverallConfidence,
		&fieldsJSON,
		&ext.Error,
		&ext.ReviewedBy,
		&ext.ReviewedAt,
		&ext.CreatedAt,
		&ext.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &ext.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal fields: %w", err)
		}
	}

	return ext, nil
}

// ListByFarm retrieves a farm's extractions, newest first.
func (s *ExtractionStore) ListByFarm(ctx context.Context, farmID string, limit, offset int) ([]*types.Extraction, int, error) {
	var total int
	err := s.queryRow(ctx,
		`SELECT COUNT(*) FROM extractions WHERE farm_id = $1`,
		farmID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, document_id, farm_id, status, overall_confidence, fields, error, reviewed_by, reviewed_at, created_at, updated_at
		FROM extractions
		WHERE farm_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.query(ctx, query, farmID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exts []*types.Extraction
	for rows.Next() {
		ext := &types.Extraction{}
		var fieldsJSON []byte
		err := rows.Scan(
			&ext.ID,
			&ext.DocumentID,
			&ext.FarmID,
			&ext.Status,
			&ext.OverallConfidence,
			&fieldsJSON,
			&ext.Error,
			&ext.ReviewedBy,
			&ext.ReviewedAt,
			&ext.CreatedAt,
			&ext.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &ext.Fields); err != nil {
				return nil, 0, fmt.Errorf("unmarshal fields: %w", err)
			}
		}
		exts = append(exts, ext)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}

	return exts, total, nil
}

// UpdateFields replaces the extraction's working field set.
func (s *ExtractionStore) UpdateFields(ctx context.Context, id string, fields []types.ExtractedField) error {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	result, err := s.exec(ctx,
		`UPDATE extractions SET fields = $1, updated_at = NOW() WHERE id = $2`,
		fieldsJSON, id,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdateStatus advances the extraction lifecycle. errMsg is stored only for
// failed runs.
func (s *ExtractionStore) UpdateStatus(ctx context.Context, id string, status types.ExtractionStatus, errMsg string) error {
	result, err := s.exec(ctx,
		`UPDATE extractions SET status = $1, error = $2, updated_at = NOW() WHERE id = $3`,
		status, errMsg, id,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// MarkReviewed stamps the extraction with the reviewer and time.
func (s *ExtractionStore) MarkReviewed(ctx context.Context, id, reviewerID string) error {
	result, err := s.exec(ctx,
		`UPDATE extractions SET reviewed_by = $1, reviewed_at = NOW(), updated_at = NOW() WHERE id = $2`,
		reviewerID, id,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AddAudit appends one reconciliation decision to the audit trail.
func (s *ExtractionStore) AddAudit(ctx context.Context, audit *types.FieldAudit) error {
	query := `
		INSERT INTO field_audits (extraction_id, field_name, action, old_value, new_value, old_source, new_source, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.exec(ctx, query,
		audit.ExtractionID,
		audit.FieldName,
		audit.Action,
		audit.OldValue,
		audit.NewValue,
		audit.OldSource,
		audit.NewSource,
		audit.ActorID,
	)
	return err
}

// ListAudits retrieves the audit trail for an extraction, oldest first.
func (s *ExtractionStore) ListAudits(ctx context.Context, extractionID string) ([]*types.FieldAudit, error) {
	query := `
		SELECT id, extraction_id, field_name, action, old_value, new_value, old_source, new_source, actor_id, created_at
		FROM field_audits
		WHERE extraction_id = $1
		ORDER BY created_at ASC`

	rows, err := s.query(ctx, query, extractionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []*types.FieldAudit
	for rows.Next() {
		audit := &types.FieldAudit{}
		err := rows.Scan(
			&audit.ID,
			&audit.ExtractionID,
			&audit.FieldName,
			&audit.Action,
			&audit.OldValue,
			&audit.NewValue,
			&audit.OldSource,
			&audit.NewSource,
			&audit.ActorID,
			&audit.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		audits = append(audits, audit)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return audits, nil
}

// DeleteByFarm removes all of a farm's extractions and their audit rows.
// Used by the purge pipeline.
func (s *ExtractionStore) DeleteByFarm(ctx context.Context, farmID string) (int64, error) {
	_, err := s.exec(ctx,
		`DELETE FROM field_audits WHERE extraction_id IN (SELECT id FROM extractions WHERE farm_id = $1)`,
		farmID,
	)
	if err != nil {
		return 0, err
	}

	result, err := s.exec(ctx, `DELETE FROM extractions WHERE farm_id = $1`, farmID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Helper methods route statements through the open transaction when one is
// active.

func (s *ExtractionStore) queryRow(ctx context.Context, query string, args ...any) pgx.Row {
	if s.tx != nil {
		return s.tx.QueryRow(ctx, query, args...)
	}
	return s.db.QueryRow(ctx, query, args...)
}

func (s *ExtractionStore) query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	if s.tx != nil {
		return s.tx.Query(ctx, query, args...)
	}
	return s.db.Query(ctx, query, args...)
}

func (s *ExtractionStore) exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if s.tx != nil {
		return s.tx.Exec(ctx, query, args...)
	}
	return s.db.Exec(ctx, query, args...)
}

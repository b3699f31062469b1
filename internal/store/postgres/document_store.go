package postgres

import (
	"context"
	"errors"

	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/jackc/pgx/v5"
)

// DocumentStore implements store.DocumentStore using PostgreSQL.
type DocumentStore struct {
	db DB
}

// NewDocumentStore creates a new DocumentStore instance.
func NewDocumentStore(db DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// CreateDocument inserts document metadata and returns the new ID.
func (s *DocumentStore) CreateDocument(ctx context.Context, doc *types.Document) (string, error) {
	query := `
		INSERT INTO documents (farm_id, file_name, content_type, size_bytes, category, storage_key, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var id string
	err := s.db.QueryRow(ctx, query,
		doc.FarmID,
		doc.FileName,
		doc.ContentType,
		doc.SizeBytes,
		doc.Category,
		doc.StorageKey,
		doc.UploadedBy,
	).Scan(&id)
	if err != nil {
		return "", err
	}

	return id, nil
}

// GetDocument retrieves document metadata by ID.
func (s *DocumentStore) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	query := `
		SELECT id, farm_id, file_name, content_type, size_bytes, category, storage_key, uploaded_by, created_at
		FROM documents
		WHERE id = $1`

	doc := &types.Document{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.FarmID,
		&doc.FileName,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.Category,
		&doc.StorageKey,
		&doc.UploadedBy,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return doc, nil
}

// ListDocuments retrieves a farm's documents, optionally filtered by
// category, newest first.
func (s *DocumentStore) ListDocuments(ctx context.Context, farmID string, category types.DocumentCategory, limit, offset int) ([]*types.Document, int, error) {
	countQuery := `SELECT COUNT(*) FROM documents WHERE farm_id = $1 AND ($2 = '' OR category = $2)`

	var total int
	if err := s.db.QueryRow(ctx, countQuery, farmID, string(category)).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, farm_id, file_name, content_type, size_bytes, category, storage_key, uploaded_by, created_at
		FROM documents
		WHERE farm_id = $1 AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := s.db.Query(ctx, query, farmID, string(category), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []*types.Document
	for rows.Next() {
		doc := &types.Document{}
		err := rows.Scan(
			&doc.ID,
			&doc.FarmID,
			&doc.FileName,
			&doc.ContentType,
			&doc.SizeBytes,
			&doc.Category,
			&doc.StorageKey,
			&doc.UploadedBy,
			&doc.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// DeleteDocument removes document metadata.
func (s *DocumentStore) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteByFarm removes all of a farm's document metadata and reports how
// many rows went away. Used by the purge pipeline.
func (s *DocumentStore) DeleteByFarm(ctx context.Context, farmID string) (int64, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM documents WHERE farm_id = $1`, farmID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

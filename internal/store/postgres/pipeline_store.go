package postgres

import (
	"context"
	"errors"

	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/jackc/pgx/v5"
)

// PipelineStore implements store.PipelineStore using PostgreSQL.
type PipelineStore struct {
	db DB
}

// NewPipelineStore creates a new PipelineStore instance.
func NewPipelineStore(db DB) *PipelineStore {
	return &PipelineStore{db: db}
}

// CreateRun records a queued pipeline run.
func (s *PipelineStore) CreateRun(ctx context.Context, run *types.PipelineRun) (string, error) {
	query := `
		INSERT INTO pipeline_runs (kind, status, target_id, items_total, started_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id string
	err := s.db.QueryRow(ctx, query,
		run.Kind,
		run.Status,
		run.TargetID,
		run.ItemsTotal,
		run.StartedBy,
	).Scan(&id)
	if err != nil {
		return "", err
	}

	return id, nil
}

// GetRun retrieves a pipeline run by ID.
func (s *PipelineStore) GetRun(ctx context.Context, id string) (*types.PipelineRun, error) {
	query := `
		SELECT id, kind, status, target_id, items_total, items_processed, items_failed, error, started_by, created_at, updated_at, finished_at
		FROM pipeline_runs
		WHERE id = $1`

	run := &types.PipelineRun{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.Kind,
		&run.Status,
		&run.TargetID,
		&run.ItemsTotal,
		&run.ItemsProcessed,
		&run.ItemsFailed,
		&run.Error,
		&run.StartedBy,
		&run.CreatedAt,
		&run.UpdatedAt,
		&run.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return run, nil
}

// UpdateRun writes back the run's status, counters, and error. Terminal
// statuses stamp finished_at.
func (s *PipelineStore) UpdateRun(ctx context.Context, run *types.PipelineRun) error {
	query := `
		UPDATE pipeline_runs
		SET status = $1,
			items_total = $2,
			items_processed = $3,
			items_failed = $4,
			error = $5,
			updated_at = NOW(),
			finished_at = CASE WHEN $1 IN ('completed', 'failed') THEN NOW() ELSE finished_at END
		WHERE id = $6`

	result, err := s.db.Exec(ctx, query,
		run.Status,
		run.ItemsTotal,
		run.ItemsProcessed,
		run.ItemsFailed,
		run.Error,
		run.ID,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListRuns retrieves recent runs, optionally filtered by kind.
func (s *PipelineStore) ListRuns(ctx context.Context, kind types.PipelineKind, limit, offset int) ([]*types.PipelineRun, int, error) {
	countQuery := `SELECT COUNT(*) FROM pipeline_runs WHERE $1 = '' OR kind = $1`

	var total int
	if err := s.db.QueryRow(ctx, countQuery, string(kind)).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, kind, status, target_id, items_total, items_processed, items_failed, error, started_by, created_at, updated_at, finished_at
		FROM pipeline_runs
		WHERE $1 = '' OR kind = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, query, string(kind), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*types.PipelineRun
	for rows.Next() {
		run := &types.PipelineRun{}
		err := rows.Scan(
			&run.ID,
			&run.Kind,
			&run.Status,
			&run.TargetID,
			&run.ItemsTotal,
			&run.ItemsProcessed,
			&run.ItemsFailed,
			&run.Error,
			&run.StartedBy,
			&run.CreatedAt,
			&run.UpdatedAt,
			&run.FinishedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

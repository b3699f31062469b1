package postgres

import (
	"context"
	"errors"

	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/jackc/pgx/v5"
)

// ReviewStore implements store.ReviewStore using PostgreSQL.
type ReviewStore struct {
	db DB
}

// NewReviewStore creates a new ReviewStore instance.
func NewReviewStore(db DB) *ReviewStore {
	return &ReviewStore{db: db}
}

// CreateAssignment queues an extraction to a reviewer.
func (s *ReviewStore) CreateAssignment(ctx context.Context, create *types.ReviewAssignmentCreate, assignedBy string) (string, error) {
	priority := create.Priority
	if priority == "" {
		priority = types.ReviewPriorityNormal
	}

	query := `
		INSERT INTO review_assignments (extraction_id, reviewer_id, status, priority, assigned_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id string
	err := s.db.QueryRow(ctx, query,
		create.ExtractionID,
		create.ReviewerID,
		types.ReviewStatusAssigned,
		priority,
		assignedBy,
	).Scan(&id)
	if err != nil {
		return "", err
	}

	return id, nil
}

// GetAssignment retrieves an assignment by ID.
func (s *ReviewStore) GetAssignment(ctx context.Context, id string) (*types.ReviewAssignment, error) {
	query := `
		SELECT id, extraction_id, reviewer_id, status, priority, assigned_by, assigned_at, completed_at
		FROM review_assignments
		WHERE id = $1`

	a := &types.ReviewAssignment{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.ExtractionID,
		&a.ReviewerID,
		&a.Status,
		&a.Priority,
		&a.AssignedBy,
		&a.AssignedAt,
		&a.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return a, nil
}

// ListAssignments retrieves a reviewer's queue ordered by priority then age.
// Empty reviewerID or status means no filter on that column.
func (s *ReviewStore) ListAssignments(ctx context.Context, reviewerID string, status types.ReviewStatus, limit, offset int) ([]*types.ReviewAssignment, int, error) {
	countQuery := `
		SELECT COUNT(*) FROM review_assignments
		WHERE ($1 = '' OR reviewer_id = $1) AND ($2 = '' OR status = $2)`

	var total int
	if err := s.db.QueryRow(ctx, countQuery, reviewerID, string(status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, extraction_id, reviewer_id, status, priority, assigned_by, assigned_at, completed_at
		FROM review_assignments
		WHERE ($1 = '' OR reviewer_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'normal' THEN 1 ELSE 2 END, assigned_at ASC
		LIMIT $3 OFFSET $4`

	rows, err := s.db.Query(ctx, query, reviewerID, string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var assignments []*types.ReviewAssignment
	for rows.Next() {
		a := &types.ReviewAssignment{}
		err := rows.Scan(
			&a.ID,
			&a.ExtractionID,
			&a.ReviewerID,
			&a.Status,
			&a.Priority,
			&a.AssignedBy,
			&a.AssignedAt,
			&a.CompletedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		assignments = append(assignments, a)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

// UpdateStatus advances the assignment lifecycle. Completion stamps
// completed_at.
func (s *ReviewStore) UpdateStatus(ctx context.Context, id string, status types.ReviewStatus) error {
	query := `
		UPDATE review_assignments
		SET status = $1,
			completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $2`

	result, err := s.db.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

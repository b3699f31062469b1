package postgres

import (
	"context"
	"errors"

	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/jackc/pgx/v5"
)

// SubsidyStore implements store.SubsidyStore using PostgreSQL.
type SubsidyStore struct {
	db DB
}

// NewSubsidyStore creates a new SubsidyStore instance.
func NewSubsidyStore(db DB) *SubsidyStore {
	return &SubsidyStore{db: db}
}

// UpsertSubsidy inserts or refreshes a catalog entry keyed on the upstream
// code, so repeated syncs stay idempotent.
func (s *SubsidyStore) UpsertSubsidy(ctx context.Context, sub *types.Subsidy) (string, error) {
	query := `
		INSERT INTO subsidies (code, title, agency, description, funding_amount, currency, deadline, regions, eligibility)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO UPDATE SET
			title = EXCLUDED.title,
			agency = EXCLUDED.agency,
			description = EXCLUDED.description,
			funding_amount = EXCLUDED.funding_amount,
			currency = EXCLUDED.currency,
			deadline = EXCLUDED.deadline,
			regions = EXCLUDED.regions,
			eligibility = EXCLUDED.eligibility,
			updated_at = NOW()
		RETURNING id`

	var id string
	err := s.db.QueryRow(ctx, query,
		sub.Code,
		sub.Title,
		sub.Agency,
		sub.Description,
		sub.FundingAmount,
		sub.Currency,
		sub.Deadline,
		sub.Regions,
		sub.Eligibility,
	).Scan(&id)
	if err != nil {
		return "", err
	}

	return id, nil
}

// GetSubsidy retrieves a catalog entry by ID.
func (s *SubsidyStore) GetSubsidy(ctx context.Context, id string) (*types.Subsidy, error) {
	query := `
		SELECT id, code, title, agency, description, funding_amount, currency, deadline, regions, eligibility, created_at, updated_at
		FROM subsidies
		WHERE id = $1`

	sub := &types.Subsidy{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&sub.ID,
		&sub.Code,
		&sub.Title,
		&sub.Agency,
		&sub.Description,
		&sub.FundingAmount,
		&sub.Currency,
		&sub.Deadline,
		&sub.Regions,
		&sub.Eligibility,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return sub, nil
}

// ListSubsidies retrieves catalog entries, optionally restricted to a region.
func (s *SubsidyStore) ListSubsidies(ctx context.Context, region string, limit, offset int) ([]*types.Subsidy, int, error) {
	countQuery := `SELECT COUNT(*) FROM subsidies WHERE $1 = '' OR $1 = ANY(regions)`

	var total int
	if err := s.db.QueryRow(ctx, countQuery, region).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, code, title, agency, description, funding_amount, currency, deadline, regions, eligibility, created_at, updated_at
		FROM subsidies
		WHERE $1 = '' OR $1 = ANY(regions)
		ORDER BY deadline ASC NULLS LAST, title ASC
		LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, query, region, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var subs []*types.Subsidy
	for rows.Next() {
		sub := &types.Subsidy{}
		err := rows.Scan(
			&sub.ID,
			&sub.Code,
			&sub.Title,
			&sub.Agency,
			&sub.Description,
			&sub.FundingAmount,
			&sub.Currency,
			&sub.Deadline,
			&sub.Regions,
			&sub.Eligibility,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}

	return subs, total, nil
}

// CreateMatch records an orchestrator match between a farm and a subsidy.
func (s *SubsidyStore) CreateMatch(ctx context.Context, match *types.SubsidyMatch) (string, error) {
	query := `
		INSERT INTO subsidy_matches (farm_id, subsidy_id, score, matched_criteria)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (farm_id, subsidy_id) DO UPDATE SET
			score = EXCLUDED.score,
			matched_criteria = EXCLUDED.matched_criteria
		RETURNING id`

	var id string
	err := s.db.QueryRow(ctx, query,
		match.FarmID,
		match.SubsidyID,
		match.Score,
		match.MatchedCriteria,
	).Scan(&id)
	if err != nil {
		return "", err
	}

	return id, nil
}

// ListMatches retrieves a farm's matches joined with their catalog entries,
// best score first.
func (s *SubsidyStore) ListMatches(ctx context.Context, farmID string) ([]*types.SubsidyMatch, error) {
	query := `
		SELECT m.id, m.farm_id, m.subsidy_id, m.score, m.matched_criteria, m.created_at,
			s.id, s.code, s.title, s.agency, s.description, s.funding_amount, s.currency, s.deadline, s.regions, s.eligibility, s.created_at, s.updated_at
		FROM subsidy_matches m
		JOIN subsidies s ON s.id = m.subsidy_id
		WHERE m.farm_id = $1
		ORDER BY m.score DESC`

	rows, err := s.db.Query(ctx, query, farmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*types.SubsidyMatch
	for rows.Next() {
		match := &types.SubsidyMatch{Subsidy: &types.Subsidy{}}
		err := rows.Scan(
			&match.ID,
			&match.FarmID,
			&match.SubsidyID,
			&match.Score,
			&match.MatchedCriteria,
			&match.CreatedAt,
			&match.Subsidy.ID,
			&match.Subsidy.Code,
			&match.Subsidy.Title,
			&match.Subsidy.Agency,
			&match.Subsidy.Description,
			&match.Subsidy.FundingAmount,
			&match.Subsidy.Currency,
			&match.Subsidy.Deadline,
			&match.Subsidy.Regions,
			&match.Subsidy.Eligibility,
			&match.Subsidy.CreatedAt,
			&match.Subsidy.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return matches, nil
}

// DeleteMatchesByFarm removes all matches for a farm. Used by the purge
// pipeline.
func (s *SubsidyStore) DeleteMatchesByFarm(ctx context.Context, farmID string) (int64, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM subsidy_matches WHERE farm_id = $1`, farmID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

package postgres

import (
	"context"
	"errors"

	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/jackc/pgx/v5"
)

// FarmStore implements store.FarmStore using PostgreSQL.
type FarmStore struct {
	db DB
}

// NewFarmStore creates a new FarmStore instance.
func NewFarmStore(db DB) *FarmStore {
	return &FarmStore{db: db}
}

// CreateFarm inserts a farm profile and returns its ID.
func (s *FarmStore) CreateFarm(ctx context.Context, farm *types.Farm) (string, error) {
	query := `
		INSERT INTO farms (name, owner_id, address, region, legal_status, total_hectares, land_use_types, contact_email, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	var id string
	err := s.db.QueryRow(ctx, query,
		farm.Name,
		farm.OwnerID,
		farm.Address,
		farm.Region,
		farm.LegalStatus,
		farm.TotalHectares,
		farm.LandUseTypes,
		farm.ContactEmail,
		farm.Phone,
	).Scan(&id)
	if err != nil {
		return "", err
	}

	return id, nil
}

// GetFarm retrieves a farm profile by its ID.
func (s *FarmStore) GetFarm(ctx context.Context, id string) (*types.Farm, error) {
	query := `
		SELECT id, name, owner_id, address, region, legal_status, total_hectares, land_use_types, contact_email, phone, created_at, updated_at
		FROM farms
		WHERE id = $1 AND deleted_at IS NULL`

	farm := &types.Farm{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&farm.ID,
		&farm.Name,
		&farm.OwnerID,
		&farm.Address,
		&farm.Region,
		&farm.LegalStatus,
		&farm.TotalHectares,
		&farm.LandUseTypes,
		&farm.ContactEmail,
		&farm.Phone,
		&farm.CreatedAt,
		&farm.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return farm, nil
}

// ListFarms retrieves the owner's farms, newest first, with the total count
// for pagination.
func (s *FarmStore) ListFarms(ctx context.Context, ownerID string, limit, offset int) ([]*types.Farm, int, error) {
	var total int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM farms WHERE owner_id = $1 AND deleted_at IS NULL`,
		ownerID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, name, owner_id, address, region, legal_status, total_hectares, land_use_types, contact_email, phone, created_at, updated_at
		FROM farms
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var farms []*types.Farm
	for rows.Next() {
		farm := &types.Farm{}
		err := rows.Scan(
			&farm.ID,
			&farm.Name,
			&farm.OwnerID,
			&farm.Address,
			&farm.Region,
			&farm.LegalStatus,
			&farm.TotalHectares,
			&farm.LandUseTypes,
			&farm.ContactEmail,
			&farm.Phone,
			&farm.CreatedAt,
			&farm.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		farms = append(farms, farm)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}

	return farms, total, nil
}

// UpdateFarm applies the non-nil fields of update and returns the updated
// profile.
func (s *FarmStore) UpdateFarm(ctx context.Context, id string, update *types.FarmUpdate) (*types.Farm, error) {
	query := `
		UPDATE farms
		SET name = COALESCE($1, name),
			address = COALESCE($2, address),
			region = COALESCE($3, region),
			legal_status = COALESCE($4, legal_status),
			total_hectares = COALESCE($5, total_hectares),
			land_use_types = COALESCE($6, land_use_types),
			contact_email = COALESCE($7, contact_email),
			phone = COALESCE($8, phone),
			updated_at = NOW()
		WHERE id = $9 AND deleted_at IS NULL
		RETURNING id, name, owner_id, address, region, legal_status, total_hectares, land_use_types, contact_email, phone, created_at, updated_at`

	farm := &types.Farm{}
	err := s.db.QueryRow(ctx, query,
		update.Name,
		update.Address,
		update.Region,
		update.LegalStatus,
		update.TotalHectares,
		update.LandUseTypes,
		update.ContactEmail,
		update.Phone,
		id,
	).Scan(
		&farm.ID,
		&farm.Name,
		&farm.OwnerID,
		&farm.Address,
		&farm.Region,
		&farm.LegalStatus,
		&farm.TotalHectares,
		&farm.LandUseTypes,
		&farm.ContactEmail,
		&farm.Phone,
		&farm.CreatedAt,
		&farm.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return farm, nil
}

// DeleteFarm soft-deletes a farm profile.
func (s *FarmStore) DeleteFarm(ctx context.Context, id string) error {
	result, err := s.db.Exec(ctx,
		`UPDATE farms SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

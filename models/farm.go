package models

import (
	"context"
	"strings"

	apperrors "github.com/AgriPilot/agripilot-backend/errors"
	"github.com/AgriPilot/agripilot-backend/internal/fieldmap"
	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/shopspring/decimal"
)

// FarmModel owns farm profile business rules on top of the store.
type FarmModel struct {
	store store.FarmStore
}

func NewFarmModel(store store.FarmStore) *FarmModel {
	return &FarmModel{store: store}
}

func (fm *FarmModel) CreateFarm(ctx context.Context, ownerID string, create *types.FarmCreate) (*types.Farm, error) {
	log := logger.GetLogger()

	if err := validateFarmCreate(create); err != nil {
		return nil, err
	}

	farm := &types.Farm{
		Name:          strings.TrimSpace(create.Name),
		OwnerID:       ownerID,
		Address:       create.Address,
		Region:        create.Region,
		LegalStatus:   create.LegalStatus,
		TotalHectares: create.TotalHectares,
		LandUseTypes:  create.LandUseTypes,
		ContactEmail:  create.ContactEmail,
		Phone:         create.Phone,
	}

	id, err := fm.store.CreateFarm(ctx, farm)
	if err != nil {
		log.Errorw("Failed to create farm", "ownerId", ownerID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}
	farm.ID = id

	return farm, nil
}

func (fm *FarmModel) GetFarm(ctx context.Context, id string) (*types.Farm, error) {
	farm, err := fm.store.GetFarm(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperrors.FarmNotFound(id)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return farm, nil
}

func (fm *FarmModel) ListFarms(ctx context.Context, ownerID string, limit, offset int) ([]*types.Farm, int, error) {
	limit, offset = normalizePage(limit, offset)

	farms, total, err := fm.store.ListFarms(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewDatabaseError(err)
	}
	return farms, total, nil
}

func (fm *FarmModel) UpdateFarm(ctx context.Context, id, userID string, update *types.FarmUpdate) (*types.Farm, error) {
	log := logger.GetLogger()

	farm, err := fm.GetFarm(ctx, id)
	if err != nil {
		return nil, err
	}
	if farm.OwnerID != userID {
		return nil, apperrors.Forbidden("forbidden", "only the owner can update a farm profile")
	}

	if err := validateFarmUpdate(update); err != nil {
		return nil, err
	}

	updated, err := fm.store.UpdateFarm(ctx, id, update)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperrors.FarmNotFound(id)
		}
		log.Errorw("Failed to update farm", "farmId", id, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	return updated, nil
}

func (fm *FarmModel) DeleteFarm(ctx context.Context, id, userID string) error {
	farm, err := fm.GetFarm(ctx, id)
	if err != nil {
		return err
	}
	if farm.OwnerID != userID {
		return apperrors.Forbidden("forbidden", "only the owner can delete a farm profile")
	}

	if err := fm.store.DeleteFarm(ctx, id); err != nil {
		if err == store.ErrNotFound {
			return apperrors.FarmNotFound(id)
		}
		return apperrors.NewDatabaseError(err)
	}
	return nil
}

// ApplyMappedFields folds accepted reconciliation output into a farm profile
// update. Mapped values arrive keyed by canonical target names with the
// coercions already applied; this translates them onto the typed update
// struct. Targets with no profile column (owner_name, certifications and the
// like) are skipped here; they live on the extraction record only.
//
// No ownership check: saves come from assigned reviewers, who rarely own
// the farm. The review assignment is the authorization.
func (fm *FarmModel) ApplyMappedFields(ctx context.Context, farmID string, mapped []fieldmap.MappedField) (*types.Farm, error) {
	update := &types.FarmUpdate{}

	for _, m := range mapped {
		switch m.Key {
		case "name":
			if v, ok := m.Value.(string); ok {
				update.Name = &v
			}
		case "address":
			if v, ok := m.Value.(string); ok {
				update.Address = &v
			}
		case "region":
			if v, ok := m.Value.(string); ok {
				update.Region = &v
			}
		case "legal_status":
			if v, ok := m.Value.(string); ok {
				update.LegalStatus = &v
			}
		case "total_hectares":
			if v, ok := m.Value.(float64); ok {
				d := decimal.NewFromFloat(v)
				update.TotalHectares = &d
			}
		case "land_use_types":
			if v, ok := m.Value.([]string); ok {
				update.LandUseTypes = v
			}
		case "contact_email":
			if v, ok := m.Value.(string); ok {
				update.ContactEmail = &v
			}
		case "phone":
			if v, ok := m.Value.(string); ok {
				update.Phone = &v
			}
		}
	}

	if err := validateFarmUpdate(update); err != nil {
		return nil, err
	}

	updated, err := fm.store.UpdateFarm(ctx, farmID, update)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperrors.FarmNotFound(farmID)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return updated, nil
}

func validateFarmCreate(create *types.FarmCreate) error {
	if strings.TrimSpace(create.Name) == "" {
		return apperrors.ValidationFailed("invalid_farm", "farm name is required")
	}
	if create.TotalHectares.IsNegative() {
		return apperrors.ValidationFailed("invalid_farm", "total hectares cannot be negative")
	}
	return nil
}

func validateFarmUpdate(update *types.FarmUpdate) error {
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return apperrors.ValidationFailed("invalid_farm", "farm name cannot be empty")
	}
	if update.TotalHectares != nil && update.TotalHectares.IsNegative() {
		return apperrors.ValidationFailed("invalid_farm", "total hectares cannot be negative")
	}
	return nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

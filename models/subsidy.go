package models

import (
	"context"
	"errors"

	apperrors "github.com/AgriPilot/agripilot-backend/errors"
	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/types"
)

// SubsidyModel owns catalog reads and match listing. Catalog writes happen
// through the sync pipeline only.
type SubsidyModel struct {
	store store.SubsidyStore
}

func NewSubsidyModel(store store.SubsidyStore) *SubsidyModel {
	return &SubsidyModel{store: store}
}

func (sm *SubsidyModel) GetSubsidy(ctx context.Context, id string) (*types.Subsidy, error) {
	sub, err := sm.store.GetSubsidy(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.SubsidyNotFound(id)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return sub, nil
}

func (sm *SubsidyModel) ListSubsidies(ctx context.Context, region string, limit, offset int) ([]*types.Subsidy, int, error) {
	limit, offset = normalizePage(limit, offset)

	subs, total, err := sm.store.ListSubsidies(ctx, region, limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewDatabaseError(err)
	}
	return subs, total, nil
}

// ListMatches returns a farm's subsidy matches, best score first, each with
// its catalog entry attached.
func (sm *SubsidyModel) ListMatches(ctx context.Context, farmID string) ([]*types.SubsidyMatch, error) {
	matches, err := sm.store.ListMatches(ctx, farmID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return matches, nil
}

// UpsertFromSync writes one catalog entry during a sync run.
func (sm *SubsidyModel) UpsertFromSync(ctx context.Context, sub *types.Subsidy) (string, error) {
	if sub.Code == "" || sub.Title == "" {
		return "", apperrors.ValidationFailed("invalid_subsidy", "code and title are required")
	}

	id, err := sm.store.UpsertSubsidy(ctx, sub)
	if err != nil {
		return "", apperrors.NewDatabaseError(err)
	}
	return id, nil
}

// RecordMatch stores one orchestrator match.
func (sm *SubsidyModel) RecordMatch(ctx context.Context, match *types.SubsidyMatch) (string, error) {
	if match.Score < 0 || match.Score > 1 {
		return "", apperrors.ValidationFailed("invalid_match", "score must be between 0 and 1")
	}

	id, err := sm.store.CreateMatch(ctx, match)
	if err != nil {
		return "", apperrors.NewDatabaseError(err)
	}
	return id, nil
}

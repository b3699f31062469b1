package models

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/AgriPilot/agripilot-backend/errors"
	"github.com/AgriPilot/agripilot-backend/internal/fieldmap"
	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/google/uuid"
)

// ExtractionModel owns the extraction review workflow: single-field
// decisions, bulk tier operations, and the final save that maps accepted
// fields onto the farm profile.
type ExtractionModel struct {
	store     store.ExtractionStore
	farmModel *FarmModel
	dict      fieldmap.Dictionary
	events    types.EventPublisher
}

func NewExtractionModel(store store.ExtractionStore, farmModel *FarmModel, dict fieldmap.Dictionary, events types.EventPublisher) *ExtractionModel {
	if dict == nil {
		dict = fieldmap.Default()
	}
	return &ExtractionModel{
		store:     store,
		farmModel: farmModel,
		dict:      dict,
		events:    events,
	}
}

func (em *ExtractionModel) GetExtraction(ctx context.Context, id string) (*types.Extraction, error) {
	ext, err := em.store.GetExtraction(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.ExtractionNotFound(id)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return ext, nil
}

func (em *ExtractionModel) ListByFarm(ctx context.Context, farmID string, limit, offset int) ([]*types.Extraction, int, error) {
	limit, offset = normalizePage(limit, offset)

	exts, total, err := em.store.ListByFarm(ctx, farmID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewDatabaseError(err)
	}
	return exts, total, nil
}

// AcceptField marks a single field accepted. Accepting clears any previous
// rejection.
func (em *ExtractionModel) AcceptField(ctx context.Context, extractionID, fieldName, actorID string) (*types.Extraction, error) {
	return em.mutateField(ctx, extractionID, fieldName, actorID, types.AuditActionAccept,
		func(f *types.ExtractedField) error {
			f.Accepted = true
			f.Rejected = false
			return nil
		})
}

// RejectField marks a single field rejected. Rejecting clears any previous
// acceptance.
func (em *ExtractionModel) RejectField(ctx context.Context, extractionID, fieldName, actorID string) (*types.Extraction, error) {
	return em.mutateField(ctx, extractionID, fieldName, actorID, types.AuditActionReject,
		func(f *types.ExtractedField) error {
			f.Rejected = true
			f.Accepted = false
			return nil
		})
}

// EditField applies a reviewer's correction. The first edit snapshots the
// machine value and source so the correction can be reverted later; repeated
// edits keep the original snapshot. An edited field moves to user_corrected
// and counts as accepted.
func (em *ExtractionModel) EditField(ctx context.Context, extractionID, fieldName, actorID string, edit *types.FieldEdit) (*types.Extraction, error) {
	if strings.TrimSpace(edit.Value) == "" {
		return nil, apperrors.ValidationFailed("invalid_edit", "corrected value cannot be empty")
	}

	return em.mutateField(ctx, extractionID, fieldName, actorID, types.AuditActionEdit,
		func(f *types.ExtractedField) error {
			if !f.Source.CanTransitionTo(types.SourceUserCorrected) {
				return apperrors.InvalidSourceTransition(string(f.Source), string(types.SourceUserCorrected))
			}
			if f.OriginalValue == nil {
				v := f.Value
				f.OriginalValue = &v
				f.OriginalSource = f.Source
			}
			f.Value = edit.Value
			f.Notes = edit.Notes
			f.Source = types.SourceUserCorrected
			f.Modified = true
			f.Accepted = true
			f.Rejected = false
			return nil
		})
}

// RevertField undoes a correction, restoring both the snapshotted value and
// the snapshotted source. Only a user-corrected field can revert.
func (em *ExtractionModel) RevertField(ctx context.Context, extractionID, fieldName, actorID string) (*types.Extraction, error) {
	return em.mutateField(ctx, extractionID, fieldName, actorID, types.AuditActionRevert,
		func(f *types.ExtractedField) error {
			if f.OriginalValue == nil || !f.Source.CanRevertTo(f.OriginalSource) {
				return apperrors.InvalidSourceTransition(string(f.Source), string(f.OriginalSource))
			}
			f.Value = *f.OriginalValue
			f.Source = f.OriginalSource
			f.OriginalValue = nil
			f.OriginalSource = ""
			f.Notes = ""
			f.Modified = false
			f.Accepted = false
			f.Rejected = false
			return nil
		})
}

// BulkAcceptByTier accepts exactly the fields whose confidence is at or
// above the tier floor, overriding earlier per-field decisions, and returns
// the extraction plus how many fields changed.
func (em *ExtractionModel) BulkAcceptByTier(ctx context.Context, extractionID string, tier types.ConfidenceTier, actorID string) (*types.Extraction, int, error) {
	if !tier.Valid() {
		return nil, 0, apperrors.ValidationFailed("invalid_tier", "tier must be high, medium or low")
	}

	ext, err := em.GetExtraction(ctx, extractionID)
	if err != nil {
		return nil, 0, err
	}

	changed := 0
	for i := range ext.Fields {
		f := &ext.Fields[i]
		if f.Confidence < tier.Floor() {
			continue
		}
		if f.Accepted && !f.Rejected {
			continue
		}
		f.Accepted = true
		f.Rejected = false
		changed++
	}

	if changed > 0 {
		if err := em.persistFields(ctx, ext, "", actorID, types.AuditActionBulkAccept, string(tier)); err != nil {
			return nil, 0, err
		}
	}

	return ext, changed, nil
}

// BulkRejectByTier rejects exactly the fields whose confidence is below the
// tier ceiling, overriding earlier per-field decisions. A hand-edited field
// keeps its edited value and snapshot but is marked rejected.
func (em *ExtractionModel) BulkRejectByTier(ctx context.Context, extractionID string, tier types.ConfidenceTier, actorID string) (*types.Extraction, int, error) {
	if !tier.Valid() {
		return nil, 0, apperrors.ValidationFailed("invalid_tier", "tier must be high, medium or low")
	}

	ext, err := em.GetExtraction(ctx, extractionID)
	if err != nil {
		return nil, 0, err
	}

	changed := 0
	for i := range ext.Fields {
		f := &ext.Fields[i]
		if f.Confidence >= tier.Ceiling() {
			continue
		}
		if f.Rejected && !f.Accepted {
			continue
		}
		f.Rejected = true
		f.Accepted = false
		changed++
	}

	if changed > 0 {
		if err := em.persistFields(ctx, ext, "", actorID, types.AuditActionBulkReject, string(tier)); err != nil {
			return nil, 0, err
		}
	}

	return ext, changed, nil
}

// FilterByTier returns the extraction's fields in the given tier without
// touching any reconciliation flags.
func (em *ExtractionModel) FilterByTier(ctx context.Context, extractionID string, tier types.ConfidenceTier) ([]types.ExtractedField, error) {
	if !tier.Valid() {
		return nil, apperrors.ValidationFailed("invalid_tier", "tier must be high, medium or low")
	}

	ext, err := em.GetExtraction(ctx, extractionID)
	if err != nil {
		return nil, err
	}

	var out []types.ExtractedField
	for _, f := range ext.Fields {
		if f.Tier() == tier {
			out = append(out, f)
		}
	}
	return out, nil
}

// SaveResult reports what a save did: the updated farm profile plus every
// field the mapping dictionary dropped, with reasons.
type SaveResult struct {
	Farm    *types.Farm             `json:"farm"`
	Applied []fieldmap.MappedField  `json:"applied"`
	Dropped []fieldmap.DroppedField `json:"dropped"`
}

// SaveCorrections maps every accepted field through the dictionary and
// applies the result to the farm profile. Rejected and undecided fields are
// skipped. Drops never abort the save; they come back in the result so the
// reviewer sees exactly what was excluded and why.
func (em *ExtractionModel) SaveCorrections(ctx context.Context, extractionID, actorID string) (*SaveResult, error) {
	log := logger.GetLogger()

	ext, err := em.GetExtraction(ctx, extractionID)
	if err != nil {
		return nil, err
	}

	accepted := make(map[string]string)
	for _, f := range ext.Fields {
		if f.Accepted && !f.Rejected {
			accepted[f.FieldName] = f.Value
		}
	}
	if len(accepted) == 0 {
		return nil, apperrors.ValidationFailed("nothing_to_save", "no accepted fields to save")
	}

	mapped, dropped := em.dict.Apply(accepted)

	farm, err := em.farmModel.ApplyMappedFields(ctx, ext.FarmID, mapped)
	if err != nil {
		return nil, err
	}

	if err := em.store.MarkReviewed(ctx, extractionID, actorID); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Errorw("Failed to mark extraction reviewed", "extractionId", extractionID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	if err := em.store.AddAudit(ctx, &types.FieldAudit{
		ExtractionID: extractionID,
		FieldName:    "*",
		Action:       types.AuditActionSave,
		ActorID:      actorID,
	}); err != nil {
		log.Errorw("Failed to record save audit", "extractionId", extractionID, "error", err)
	}

	em.publish(ctx, extractionID, types.EventTypeExtractionSaved)

	if len(dropped) > 0 {
		log.Infow("Save excluded fields",
			"extractionId", extractionID, "dropped", len(dropped))
	}

	return &SaveResult{Farm: farm, Applied: mapped, Dropped: dropped}, nil
}

// ListAudits returns the reconciliation audit trail.
func (em *ExtractionModel) ListAudits(ctx context.Context, extractionID string) ([]*types.FieldAudit, error) {
	audits, err := em.store.ListAudits(ctx, extractionID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return audits, nil
}

// mutateField loads the extraction, applies fn to the named field, persists
// the working set and writes the audit row.
func (em *ExtractionModel) mutateField(ctx context.Context, extractionID, fieldName, actorID, action string, fn func(*types.ExtractedField) error) (*types.Extraction, error) {
	ext, err := em.GetExtraction(ctx, extractionID)
	if err != nil {
		return nil, err
	}

	field := ext.FieldByName(fieldName)
	if field == nil {
		return nil, apperrors.NotFound("Field", fieldName)
	}

	oldValue := field.Value
	oldSource := field.Source

	if err := fn(field); err != nil {
		return nil, err
	}

	if err := em.persistFieldChange(ctx, ext, &types.FieldAudit{
		ExtractionID: extractionID,
		FieldName:    fieldName,
		Action:       action,
		OldValue:     oldValue,
		NewValue:     field.Value,
		OldSource:    oldSource,
		NewSource:    field.Source,
		ActorID:      actorID,
	}); err != nil {
		return nil, err
	}

	return ext, nil
}

func (em *ExtractionModel) persistFieldChange(ctx context.Context, ext *types.Extraction, audit *types.FieldAudit) error {
	log := logger.GetLogger()

	if err := em.store.UpdateFields(ctx, ext.ID, ext.Fields); err != nil {
		log.Errorw("Failed to persist field change",
			"extractionId", ext.ID, "field", audit.FieldName, "error", err)
		return apperrors.NewDatabaseError(err)
	}

	if err := em.store.AddAudit(ctx, audit); err != nil {
		// The decision itself is saved; losing one audit row is logged,
		// not surfaced.
		log.Errorw("Failed to record field audit",
			"extractionId", ext.ID, "field", audit.FieldName, "error", err)
	}

	return nil
}

func (em *ExtractionModel) persistFields(ctx context.Context, ext *types.Extraction, fieldName, actorID, action, detail string) error {
	return em.persistFieldChange(ctx, ext, &types.FieldAudit{
		ExtractionID: ext.ID,
		FieldName:    fieldName,
		Action:       action,
		NewValue:     detail,
		ActorID:      actorID,
	})
}

func (em *ExtractionModel) publish(ctx context.Context, extractionID string, eventType types.EventType) {
	if em.events == nil {
		return
	}
	event := types.Event{
		BaseEvent: types.BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			RunID:     extractionID,
			Timestamp: time.Now(),
			Version:   1,
		},
		Metadata: types.EventMetadata{Source: "extraction_model"},
	}
	if err := em.events.Publish(ctx, extractionID, event); err != nil {
		logger.GetLogger().Warnw("Failed to publish extraction event",
			"extractionId", extractionID, "type", eventType, "error", err)
	}
}

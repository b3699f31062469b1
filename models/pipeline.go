package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "github.com/AgriPilot/agripilot-backend/errors"
	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/google/uuid"
)

// PipelineModel owns pipeline run bookkeeping and progress events. The
// pipeline service drives it while executing jobs on the worker pool.
type PipelineModel struct {
	store  store.PipelineStore
	events types.EventPublisher
}

func NewPipelineModel(store store.PipelineStore, events types.EventPublisher) *PipelineModel {
	return &PipelineModel{store: store, events: events}
}

// QueueRun records a new queued run and announces it.
func (pm *PipelineModel) QueueRun(ctx context.Context, kind types.PipelineKind, targetID, startedBy string) (*types.PipelineRun, error) {
	switch kind {
	case types.PipelineKindExtraction, types.PipelineKindSubsidySync, types.PipelineKindPurge, types.PipelineKindDual:
	default:
		return nil, apperrors.ValidationFailed("invalid_pipeline", "unknown pipeline kind")
	}

	run := &types.PipelineRun{
		Kind:      kind,
		Status:    types.PipelineStatusQueued,
		TargetID:  targetID,
		StartedBy: startedBy,
	}

	id, err := pm.store.CreateRun(ctx, run)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	run.ID = id

	pm.publishProgress(ctx, run, types.EventTypePipelineQueued, "")
	return run, nil
}

func (pm *PipelineModel) GetRun(ctx context.Context, id string) (*types.PipelineRun, error) {
	run, err := pm.store.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("PipelineRun", id)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return run, nil
}

func (pm *PipelineModel) ListRuns(ctx context.Context, kind types.PipelineKind, limit, offset int) ([]*types.PipelineRun, int, error) {
	limit, offset = normalizePage(limit, offset)

	runs, total, err := pm.store.ListRuns(ctx, kind, limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewDatabaseError(err)
	}
	return runs, total, nil
}

// MarkRunning moves a run into the running state.
func (pm *PipelineModel) MarkRunning(ctx context.Context, run *types.PipelineRun, itemsTotal int) error {
	run.Status = types.PipelineStatusRunning
	run.ItemsTotal = itemsTotal
	if err := pm.update(ctx, run); err != nil {
		return err
	}
	pm.publishProgress(ctx, run, types.EventTypePipelineStarted, "")
	return nil
}

// ReportProgress persists updated counters and emits a progress event.
func (pm *PipelineModel) ReportProgress(ctx context.Context, run *types.PipelineRun, message string) error {
	if err := pm.update(ctx, run); err != nil {
		return err
	}
	pm.publishProgress(ctx, run, types.EventTypePipelineProgress, message)
	return nil
}

// Complete marks a run finished.
func (pm *PipelineModel) Complete(ctx context.Context, run *types.PipelineRun) error {
	run.Status = types.PipelineStatusCompleted
	if err := pm.update(ctx, run); err != nil {
		return err
	}
	pm.publishProgress(ctx, run, types.EventTypePipelineCompleted, "")
	return nil
}

// Fail marks a run failed with the terminal error message.
func (pm *PipelineModel) Fail(ctx context.Context, run *types.PipelineRun, failure error) error {
	run.Status = types.PipelineStatusFailed
	if failure != nil {
		run.Error = failure.Error()
	}
	if err := pm.update(ctx, run); err != nil {
		return err
	}
	pm.publishProgress(ctx, run, types.EventTypePipelineFailed, run.Error)
	return nil
}

func (pm *PipelineModel) update(ctx context.Context, run *types.PipelineRun) error {
	if err := pm.store.UpdateRun(ctx, run); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("PipelineRun", run.ID)
		}
		return apperrors.NewDatabaseError(err)
	}
	return nil
}

func (pm *PipelineModel) publishProgress(ctx context.Context, run *types.PipelineRun, eventType types.EventType, message string) {
	if pm.events == nil {
		return
	}

	payload, err := json.Marshal(types.PipelineProgressEvent{
		RunID:          run.ID,
		Kind:           run.Kind,
		Status:         run.Status,
		ItemsTotal:     run.ItemsTotal,
		ItemsProcessed: run.ItemsProcessed,
		ItemsFailed:    run.ItemsFailed,
		Message:        message,
	})
	if err != nil {
		return
	}

	event := types.Event{
		BaseEvent: types.BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			RunID:     run.ID,
			UserID:    run.StartedBy,
			Timestamp: time.Now(),
			Version:   1,
		},
		Metadata: types.EventMetadata{Source: "pipeline_model"},
		Payload:  payload,
	}
	if err := pm.events.Publish(ctx, run.ID, event); err != nil {
		logger.GetLogger().Warnw("Failed to publish pipeline event",
			"runId", run.ID, "type", eventType, "error", err)
	}
}

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

// ReviewerDirectory resolves reviewer profiles for notifications. The
// Supabase service implements it.
type ReviewerDirectory interface {
	GetReviewerProfile(ctx context.Context, reviewerID string) (*types.ReviewerProfile, error)
}

// ReviewNotifier sends assignment notifications. The email service
// implements it.
type ReviewNotifier interface {
	NotifyAssignment(ctx context.Context, profile *types.ReviewerProfile, assignment *types.ReviewAssignment) error
}

// ReviewModel owns the review queue workflow.
type ReviewModel struct {
	store           store.ReviewStore
	extractionModel *ExtractionModel
	directory       ReviewerDirectory
	notifier        ReviewNotifier
	events          types.EventPublisher
}

func NewReviewModel(store store.ReviewStore, extractionModel *ExtractionModel, directory ReviewerDirectory, notifier ReviewNotifier, events types.EventPublisher) *ReviewModel {
	return &ReviewModel{
		store:           store,
		extractionModel: extractionModel,
		directory:       directory,
		notifier:        notifier,
		events:          events,
	}
}

// Assign queues an extraction to a reviewer and notifies them. Notification
// failures never fail the assignment.
func (rm *ReviewModel) Assign(ctx context.Context, create *types.ReviewAssignmentCreate, assignedBy string) (*types.ReviewAssignment, error) {
	log := logger.GetLogger()

	if create.Priority != "" {
		switch create.Priority {
		case types.ReviewPriorityLow, types.ReviewPriorityNormal, types.ReviewPriorityHigh:
		default:
			return nil, apperrors.ValidationFailed("invalid_priority", "priority must be low, normal or high")
		}
	}

	if _, err := rm.extractionModel.GetExtraction(ctx, create.ExtractionID); err != nil {
		return nil, err
	}

	id, err := rm.store.CreateAssignment(ctx, create, assignedBy)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	assignment, err := rm.store.GetAssignment(ctx, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	rm.publishAssigned(ctx, assignment)

	if rm.directory != nil && rm.notifier != nil {
		profile, err := rm.directory.GetReviewerProfile(ctx, assignment.ReviewerID)
		if err != nil {
			log.Warnw("Failed to resolve reviewer profile",
				"reviewerId", assignment.ReviewerID, "error", err)
		} else if err := rm.notifier.NotifyAssignment(ctx, profile, assignment); err != nil {
			log.Warnw("Failed to notify reviewer",
				"reviewerId", assignment.ReviewerID, "error", err)
		}
	}

	return assignment, nil
}

func (rm *ReviewModel) GetAssignment(ctx context.Context, id string) (*types.ReviewAssignment, error) {
	assignment, err := rm.store.GetAssignment(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("ReviewAssignment", id)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return assignment, nil
}

// ListQueue returns assignments ordered by priority then age.
func (rm *ReviewModel) ListQueue(ctx context.Context, reviewerID string, status types.ReviewStatus, limit, offset int) ([]*types.ReviewAssignment, int, error) {
	limit, offset = normalizePage(limit, offset)

	if status != "" {
		switch status {
		case types.ReviewStatusAssigned, types.ReviewStatusInReview, types.ReviewStatusCompleted:
		default:
			return nil, 0, apperrors.ValidationFailed("invalid_status", "unknown review status")
		}
	}

	assignments, total, err := rm.store.ListAssignments(ctx, reviewerID, status, limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewDatabaseError(err)
	}
	return assignments, total, nil
}

// Start moves an assignment to in_review. Only the assigned reviewer can
// start it.
func (rm *ReviewModel) Start(ctx context.Context, id, reviewerID string) (*types.ReviewAssignment, error) {
	return rm.advance(ctx, id, reviewerID, types.ReviewStatusAssigned, types.ReviewStatusInReview)
}

// Complete closes an assignment after the reviewer saved their decisions.
func (rm *ReviewModel) Complete(ctx context.Context, id, reviewerID string) (*types.ReviewAssignment, error) {
	assignment, err := rm.advance(ctx, id, reviewerID, types.ReviewStatusInReview, types.ReviewStatusCompleted)
	if err != nil {
		return nil, err
	}

	rm.publishEvent(ctx, assignment, types.EventTypeReviewCompleted)
	return assignment, nil
}

func (rm *ReviewModel) advance(ctx context.Context, id, reviewerID string, from, to types.ReviewStatus) (*types.ReviewAssignment, error) {
	assignment, err := rm.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment.ReviewerID != reviewerID {
		return nil, apperrors.Forbidden("forbidden", "assignment belongs to another reviewer")
	}
	if assignment.Status != from {
		return nil, apperrors.NewConflictError("invalid_review_transition",
			string(assignment.Status)+" cannot move to "+string(to))
	}

	if err := rm.store.UpdateStatus(ctx, id, to); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	assignment.Status = to
	if to == types.ReviewStatusCompleted {
		now := time.Now()
		assignment.CompletedAt = &now
	}
	return assignment, nil
}

func (rm *ReviewModel) publishAssigned(ctx context.Context, assignment *types.ReviewAssignment) {
	payload, err := json.Marshal(types.ReviewAssignedEvent{
		AssignmentID: assignment.ID,
		ExtractionID: assignment.ExtractionID,
		ReviewerID:   assignment.ReviewerID,
		AssignedBy:   assignment.AssignedBy,
	})
	if err != nil {
		return
	}
	rm.publishEventPayload(ctx, assignment, types.EventTypeReviewAssigned, payload)
}

func (rm *ReviewModel) publishEvent(ctx context.Context, assignment *types.ReviewAssignment, eventType types.EventType) {
	rm.publishEventPayload(ctx, assignment, eventType, nil)
}

func (rm *ReviewModel) publishEventPayload(ctx context.Context, assignment *types.ReviewAssignment, eventType types.EventType, payload json.RawMessage) {
	if rm.events == nil {
		return
	}
	event := types.Event{
		BaseEvent: types.BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			RunID:     assignment.ExtractionID,
			UserID:    assignment.ReviewerID,
			Timestamp: time.Now(),
			Version:   1,
		},
		Metadata: types.EventMetadata{Source: "review_model"},
		Payload:  payload,
	}
	if err := rm.events.Publish(ctx, assignment.ExtractionID, event); err != nil {
		logger.GetLogger().Warnw("Failed to publish review event",
			"assignmentId", assignment.ID, "type", eventType, "error", err)
	}
}

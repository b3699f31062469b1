package types

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AgriPilot/agripilot-backend/errors"
)

type EventType string

const (
	CategoryPipeline   = "PIPELINE"
	CategoryExtraction = "EXTRACTION"
	CategoryReview     = "REVIEW"
)

const (
	// Pipeline events
	EventTypePipelineQueued    EventType = CategoryPipeline + "_QUEUED"
	EventTypePipelineStarted   EventType = CategoryPipeline + "_STARTED"
	EventTypePipelineProgress  EventType = CategoryPipeline + "_PROGRESS"
	EventTypePipelineCompleted EventType = CategoryPipeline + "_COMPLETED"
	EventTypePipelineFailed    EventType = CategoryPipeline + "_FAILED"

	// Extraction events
	EventTypeExtractionCompleted EventType = CategoryExtraction + "_COMPLETED"
	EventTypeExtractionFailed    EventType = CategoryExtraction + "_FAILED"
	EventTypeExtractionSaved     EventType = CategoryExtraction + "_SAVED"

	// Review events
	EventTypeReviewAssigned  EventType = CategoryReview + "_ASSIGNED"
	EventTypeReviewCompleted EventType = CategoryReview + "_COMPLETED"
)

// BaseEvent carries the fields common to every event.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	RunID     string    `json:"runId"`
	UserID    string    `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Version   int       `json:"version"`
}

// EventMetadata for tracking and debugging.
type EventMetadata struct {
	CorrelationID string            `json:"correlationId,omitempty"`
	Source        string            `json:"source"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// Event is the envelope published to subscribers.
type Event struct {
	BaseEvent
	Metadata EventMetadata   `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

// Validate checks the required envelope fields.
func (e Event) Validate() error {
	if e.ID == "" {
		return errors.ValidationFailed("invalid event", "event ID is required")
	}
	if e.Type == "" {
		return errors.ValidationFailed("invalid event", "event type is required")
	}
	if e.RunID == "" {
		return errors.ValidationFailed("invalid event", "run ID is required")
	}
	if e.Timestamp.IsZero() {
		return errors.ValidationFailed("invalid event", "timestamp is required")
	}
	return nil
}

// EventPublisher publishes and subscribes to pipeline progress events.
type EventPublisher interface {
	Publish(ctx context.Context, runID string, event Event) error
	Subscribe(ctx context.Context, runID string, subscriberID string, filters ...EventType) (<-chan Event, error)
	Unsubscribe(ctx context.Context, runID string, subscriberID string) error
}

// PipelineProgressEvent is the payload for PIPELINE_PROGRESS events.
type PipelineProgressEvent struct {
	RunID          string         `json:"runId"`
	Kind           PipelineKind   `json:"kind"`
	Status         PipelineStatus `json:"status"`
	ItemsTotal     int            `json:"itemsTotal"`
	ItemsProcessed int            `json:"itemsProcessed"`
	ItemsFailed    int            `json:"itemsFailed"`
	Message        string         `json:"message,omitempty"`
}

// ReviewAssignedEvent is the payload for REVIEW_ASSIGNED events.
type ReviewAssignedEvent struct {
	AssignmentID string `json:"assignmentId"`
	ExtractionID string `json:"extractionId"`
	ReviewerID   string `json:"reviewerId"`
	AssignedBy   string `json:"assignedBy"`
}

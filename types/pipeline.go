package types

import "time"

// PipelineKind names the long-running job families executed on the worker
// pool.
type PipelineKind string

const (
	PipelineKindExtraction  PipelineKind = "extraction"
	PipelineKindSubsidySync PipelineKind = "subsidy_sync"
	PipelineKindPurge       PipelineKind = "purge"
	PipelineKindDual        PipelineKind = "dual_pipeline"
)

// PipelineStatus is the lifecycle of a pipeline run.
type PipelineStatus string

const (
	PipelineStatusQueued    PipelineStatus = "queued"
	PipelineStatusRunning   PipelineStatus = "running"
	PipelineStatusCompleted PipelineStatus = "completed"
	PipelineStatusFailed    PipelineStatus = "failed"
)

// PipelineRun is one execution of an asynchronous job, with progress
// counters updated as the run advances.
type PipelineRun struct {
	ID             string         `json:"id"`
	Kind           PipelineKind   `json:"kind"`
	Status         PipelineStatus `json:"status"`
	TargetID       string         `json:"targetId,omitempty"`
	ItemsTotal     int            `json:"itemsTotal"`
	ItemsProcessed int            `json:"itemsProcessed"`
	ItemsFailed    int            `json:"itemsFailed"`
	Error          string         `json:"error,omitempty"`
	StartedBy      string         `json:"startedBy"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	FinishedAt     *time.Time     `json:"finishedAt,omitempty"`
}

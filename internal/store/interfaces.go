// Package store defines the persistence interfaces the model layer depends
// on. The postgres subpackage provides the production implementation.
package store

import (
	"context"

	"github.com/AgriPilot/agripilot-backend/types"
)

// Transaction is a database transaction handle.
type Transaction interface {
	Commit() error
	Rollback() error
}

// FarmStore handles farm profile persistence.
type FarmStore interface {
	CreateFarm(ctx context.Context, farm *types.Farm) (string, error)
	GetFarm(ctx context.Context, id string) (*types.Farm, error)
	ListFarms(ctx context.Context, ownerID string, limit, offset int) ([]*types.Farm, int, error)
	UpdateFarm(ctx context.Context, id string, update *types.FarmUpdate) (*types.Farm, error)
	DeleteFarm(ctx context.Context, id string) error
}

// DocumentStore handles document metadata persistence.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *types.Document) (string, error)
	GetDocument(ctx context.Context, id string) (*types.Document, error)
	ListDocuments(ctx context.Context, farmID string, category types.DocumentCategory, limit, offset int) ([]*types.Document, int, error)
	DeleteDocument(ctx context.Context, id string) error
	DeleteByFarm(ctx context.Context, farmID string) (int64, error)
}

// ExtractionStore handles extraction results, their working field sets, and
// the reconciliation audit trail.
type ExtractionStore interface {
	BeginTx(ctx context.Context) (Transaction, error)
	CreateExtraction(ctx context.Context, ext *types.Extraction) (string, error)
	GetExtraction(ctx context.Context, id string) (*types.Extraction, error)
	ListByFarm(ctx context.Context, farmID string, limit, offset int) ([]*types.Extraction, int, error)
	UpdateFields(ctx context.Context, id string, fields []types.ExtractedField) error
	UpdateStatus(ctx context.Context, id string, status types.ExtractionStatus, errMsg string) error
	MarkReviewed(ctx context.Context, id, reviewerID string) error
	AddAudit(ctx context.Context, audit *types.FieldAudit) error
	ListAudits(ctx context.Context, extractionID string) ([]*types.FieldAudit, error)
	DeleteByFarm(ctx context.Context, farmID string) (int64, error)
}

// SubsidyStore handles the subsidy catalog and farm matches.
type SubsidyStore interface {
	UpsertSubsidy(ctx context.Context, sub *types.Subsidy) (string, error)
	GetSubsidy(ctx context.Context, id string) (*types.Subsidy, error)
	ListSubsidies(ctx context.Context, region string, limit, offset int) ([]*types.Subsidy, int, error)
	CreateMatch(ctx context.Context, match *types.SubsidyMatch) (string, error)
	ListMatches(ctx context.Context, farmID string) ([]*types.SubsidyMatch, error)
	DeleteMatchesByFarm(ctx context.Context, farmID string) (int64, error)
}

// ReviewStore handles the review assignment queue.
type ReviewStore interface {
	CreateAssignment(ctx context.Context, create *types.ReviewAssignmentCreate, assignedBy string) (string, error)
	GetAssignment(ctx context.Context, id string) (*types.ReviewAssignment, error)
	ListAssignments(ctx context.Context, reviewerID string, status types.ReviewStatus, limit, offset int) ([]*types.ReviewAssignment, int, error)
	UpdateStatus(ctx context.Context, id string, status types.ReviewStatus) error
}

// PipelineStore handles pipeline run bookkeeping.
type PipelineStore interface {
	CreateRun(ctx context.Context, run *types.PipelineRun) (string, error)
	GetRun(ctx context.Context, id string) (*types.PipelineRun, error)
	UpdateRun(ctx context.Context, run *types.PipelineRun) error
	ListRuns(ctx context.Context, kind types.PipelineKind, limit, offset int) ([]*types.PipelineRun, int, error)
}

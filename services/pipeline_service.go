package services

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/AgriPilot/agripilot-backend/errors"
	"github.com/AgriPilot/agripilot-backend/internal/functions"
	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/models"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FunctionsClient is the slice of the edge functions client the pipeline
// service drives.
type FunctionsClient interface {
	ClassifyExtractedFields(ctx context.Context, req functions.ClassifyRequest) (*functions.ClassifyResponse, error)
	RunExtraction(ctx context.Context, req functions.ExtractionRequest) (*functions.ExtractionResponse, error)
	SyncSubsidyCatalog(ctx context.Context, req functions.SyncRequest) (*functions.SyncResponse, error)
	PurgeData(ctx context.Context, req functions.PurgeRequest) (*functions.PurgeResponse, error)
	RunDualPipeline(ctx context.Context, req functions.OrchestrateRequest) (*functions.OrchestrateResponse, error)
}

// JobSubmitter is the worker pool surface the service needs.
type JobSubmitter interface {
	Submit(job Job) bool
}

// PipelineService starts and executes asynchronous pipelines on the worker
// pool: document extraction, subsidy catalog sync, farm data purge, and the
// combined extraction+matching run.
type PipelineService struct {
	pipelineModel *models.PipelineModel
	documentModel *models.DocumentModel
	subsidyModel  *models.SubsidyModel
	extStore      store.ExtractionStore
	docStore      store.DocumentStore
	matchStore    store.SubsidyStore
	storage       models.ObjectStorage
	fns           FunctionsClient
	pool          JobSubmitter
	log           *zap.SugaredLogger
}

func NewPipelineService(
	pipelineModel *models.PipelineModel,
	documentModel *models.DocumentModel,
	subsidyModel *models.SubsidyModel,
	extStore store.ExtractionStore,
	docStore store.DocumentStore,
	matchStore store.SubsidyStore,
	storage models.ObjectStorage,
	fns FunctionsClient,
	pool JobSubmitter,
) *PipelineService {
	return &PipelineService{
		pipelineModel: pipelineModel,
		documentModel: documentModel,
		subsidyModel:  subsidyModel,
		extStore:      extStore,
		docStore:      docStore,
		matchStore:    matchStore,
		storage:       storage,
		fns:           fns,
		pool:          pool,
		log:           logger.GetLogger().Named("pipeline"),
	}
}

// StartExtraction queues an extraction run for one document. The document
// must exist before the run is accepted.
func (ps *PipelineService) StartExtraction(ctx context.Context, documentID, userID string) (*types.PipelineRun, error) {
	doc, err := ps.documentModel.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	run, err := ps.pipelineModel.QueueRun(ctx, types.PipelineKindExtraction, documentID, userID)
	if err != nil {
		return nil, err
	}

	ok := ps.pool.Submit(Job{
		Name: fmt.Sprintf("extraction:%s", run.ID),
		Execute: func(jobCtx context.Context) error {
			return ps.runExtraction(jobCtx, run, doc)
		},
	})
	if !ok {
		if err := ps.pipelineModel.Fail(ctx, run, fmt.Errorf("worker pool queue full")); err != nil {
			ps.log.Errorw("Failed to mark dropped run failed", "runId", run.ID, "error", err)
		}
		return nil, apperrors.PipelineQueueFull()
	}

	return run, nil
}

// runExtraction executes one extraction run: fetch a presigned URL, run the
// extraction function, classify the raw fields, and store the result. A
// failed run is recorded with zero confidence and an empty field set.
func (ps *PipelineService) runExtraction(ctx context.Context, run *types.PipelineRun, doc *types.Document) error {
	if err := ps.pipelineModel.MarkRunning(ctx, run, 1); err != nil {
		return err
	}

	ext, err := ps.extractDocument(ctx, run, doc)
	if err != nil {
		run.ItemsFailed = 1
		failed := &types.Extraction{
			DocumentID: doc.ID,
			FarmID:     doc.FarmID,
			Status:     types.ExtractionStatusFailed,
			Error:      err.Error(),
		}
		if _, storeErr := ps.extStore.CreateExtraction(ctx, failed); storeErr != nil {
			ps.log.Errorw("Failed to record failed extraction",
				"documentId", doc.ID, "error", storeErr)
		}
		return ps.pipelineModel.Fail(ctx, run, err)
	}

	if _, err := ps.extStore.CreateExtraction(ctx, ext); err != nil {
		run.ItemsFailed = 1
		return ps.pipelineModel.Fail(ctx, run, err)
	}

	run.ItemsProcessed = 1
	return ps.pipelineModel.Complete(ctx, run)
}

func (ps *PipelineService) extractDocument(ctx context.Context, run *types.PipelineRun, doc *types.Document) (*types.Extraction, error) {
	url, err := ps.documentModel.DownloadURL(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	extracted, err := ps.fns.RunExtraction(ctx, functions.ExtractionRequest{
		DocumentID:  doc.ID,
		DocumentURL: url,
		FarmID:      doc.FarmID,
	})
	if err != nil {
		return nil, err
	}

	if err := ps.pipelineModel.ReportProgress(ctx, run, "fields extracted"); err != nil {
		ps.log.Warnw("Failed to report progress", "runId", run.ID, "error", err)
	}

	fields := make([]types.ExtractedField, 0, len(extracted.Fields))
	raw := make(map[string]string, len(extracted.Fields))
	for _, f := range extracted.Fields {
		fields = append(fields, types.ExtractedField{
			FieldName:  f.FieldName,
			Value:      f.Value,
			Confidence: f.Confidence,
			Source:     types.SourceExtracted,
		})
		raw[f.FieldName] = f.Value
	}

	// Classification refines confidence per field; a classifier failure
	// degrades to raw extraction output instead of failing the run.
	classified, err := ps.fns.ClassifyExtractedFields(ctx, functions.ClassifyRequest{
		ExtractionID: run.ID,
		Fields:       raw,
	})
	if err != nil {
		ps.log.Warnw("Classification failed, keeping raw extraction",
			"runId", run.ID, "error", err)
	} else {
		byName := make(map[string]functions.ClassifiedField, len(classified.Fields))
		for _, cf := range classified.Fields {
			byName[cf.FieldName] = cf
		}
		for i := range fields {
			if cf, ok := byName[fields[i].FieldName]; ok {
				fields[i].Value = cf.Value
				fields[i].Confidence = cf.Confidence
				fields[i].Source = types.SourceAIClassified
			}
		}
	}

	return &types.Extraction{
		DocumentID:        doc.ID,
		FarmID:            doc.FarmID,
		Status:            types.ExtractionStatusCompleted,
		OverallConfidence: extracted.OverallConfidence,
		Fields:            fields,
	}, nil
}

// StartSubsidySync queues a full catalog sync run.
func (ps *PipelineService) StartSubsidySync(ctx context.Context, userID string) (*types.PipelineRun, error) {
	run, err := ps.pipelineModel.QueueRun(ctx, types.PipelineKindSubsidySync, "", userID)
	if err != nil {
		return nil, err
	}

	ok := ps.pool.Submit(Job{
		Name: fmt.Sprintf("subsidy-sync:%s", run.ID),
		Execute: func(jobCtx context.Context) error {
			return ps.runSubsidySync(jobCtx, run)
		},
	})
	if !ok {
		if err := ps.pipelineModel.Fail(ctx, run, fmt.Errorf("worker pool queue full")); err != nil {
			ps.log.Errorw("Failed to mark dropped run failed", "runId", run.ID, "error", err)
		}
		return nil, apperrors.PipelineQueueFull()
	}

	return run, nil
}

func (ps *PipelineService) runSubsidySync(ctx context.Context, run *types.PipelineRun) error {
	if err := ps.pipelineModel.MarkRunning(ctx, run, 0); err != nil {
		return err
	}

	resp, err := ps.fns.SyncSubsidyCatalog(ctx, functions.SyncRequest{RunID: run.ID})
	if err != nil {
		return ps.pipelineModel.Fail(ctx, run, err)
	}

	run.ItemsTotal = len(resp.Subsidies)
	for _, row := range resp.Subsidies {
		if _, err := ps.subsidyModel.UpsertFromSync(ctx, syncRowToSubsidy(row)); err != nil {
			ps.log.Warnw("Failed to upsert catalog entry",
				"runId", run.ID, "code", row.Code, "error", err)
			run.ItemsFailed++
			continue
		}
		run.ItemsProcessed++
	}

	ps.log.Infow("Subsidy catalog synced",
		"runId", run.ID,
		"rows", len(resp.Subsidies),
		"failed", run.ItemsFailed,
		"imported", resp.Imported,
		"updated", resp.Updated,
		"removed", resp.Removed)

	return ps.pipelineModel.Complete(ctx, run)
}

// syncRowToSubsidy converts one sync payload row to a catalog entry. An
// unparseable deadline is kept nil rather than failing the row.
func syncRowToSubsidy(row functions.SyncSubsidy) *types.Subsidy {
	sub := &types.Subsidy{
		Code:          row.Code,
		Title:         row.Title,
		Agency:        row.Agency,
		Description:   row.Description,
		FundingAmount: decimal.NewFromFloat(row.FundingAmount),
		Currency:      row.Currency,
		Regions:       row.Regions,
		Eligibility:   row.Eligibility,
	}
	if row.Deadline != "" {
		if ts, err := time.Parse(time.RFC3339, row.Deadline); err == nil {
			sub.Deadline = &ts
		}
	}
	return sub
}

// StartPurge queues a data purge run for one farm. The purge deletes the
// farm's documents, extractions and matches both upstream and locally.
func (ps *PipelineService) StartPurge(ctx context.Context, farmID, userID string) (*types.PipelineRun, error) {
	run, err := ps.pipelineModel.QueueRun(ctx, types.PipelineKindPurge, farmID, userID)
	if err != nil {
		return nil, err
	}

	ok := ps.pool.Submit(Job{
		Name: fmt.Sprintf("purge:%s", run.ID),
		Execute: func(jobCtx context.Context) error {
			return ps.runPurge(jobCtx, run, farmID, userID)
		},
	})
	if !ok {
		if err := ps.pipelineModel.Fail(ctx, run, fmt.Errorf("worker pool queue full")); err != nil {
			ps.log.Errorw("Failed to mark dropped run failed", "runId", run.ID, "error", err)
		}
		return nil, apperrors.PipelineQueueFull()
	}

	return run, nil
}

func (ps *PipelineService) runPurge(ctx context.Context, run *types.PipelineRun, farmID, userID string) error {
	if err := ps.pipelineModel.MarkRunning(ctx, run, 3); err != nil {
		return err
	}

	if _, err := ps.fns.PurgeData(ctx, functions.PurgeRequest{
		FarmID:    farmID,
		Requested: userID,
	}); err != nil {
		return ps.pipelineModel.Fail(ctx, run, err)
	}

	matches, err := ps.matchStore.DeleteMatchesByFarm(ctx, farmID)
	if err != nil {
		run.ItemsFailed++
		return ps.pipelineModel.Fail(ctx, run, err)
	}
	run.ItemsProcessed++

	extractions, err := ps.extStore.DeleteByFarm(ctx, farmID)
	if err != nil {
		run.ItemsFailed++
		return ps.pipelineModel.Fail(ctx, run, err)
	}
	run.ItemsProcessed++

	// Stored objects go first; deleting the rows would orphan the blobs.
	if err := ps.purgeStoredObjects(ctx, farmID); err != nil {
		run.ItemsFailed++
		return ps.pipelineModel.Fail(ctx, run, err)
	}

	documents, err := ps.docStore.DeleteByFarm(ctx, farmID)
	if err != nil {
		run.ItemsFailed++
		return ps.pipelineModel.Fail(ctx, run, err)
	}
	run.ItemsProcessed++

	ps.log.Infow("Farm data purged",
		"runId", run.ID,
		"farmId", farmID,
		"matches", matches,
		"extractions", extractions,
		"documents", documents)

	return ps.pipelineModel.Complete(ctx, run)
}

// purgeStoredObjects deletes every stored blob belonging to the farm's
// documents. A single failed object is logged and skipped; the rows it
// belongs to still get purged.
func (ps *PipelineService) purgeStoredObjects(ctx context.Context, farmID string) error {
	const pageSize = 200
	for offset := 0; ; offset += pageSize {
		docs, _, err := ps.docStore.ListDocuments(ctx, farmID, "", pageSize, offset)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if err := ps.storage.Delete(ctx, doc.StorageKey); err != nil {
				ps.log.Warnw("Failed to delete stored object",
					"farmId", farmID, "key", doc.StorageKey, "error", err)
			}
		}
		if len(docs) < pageSize {
			return nil
		}
	}
}

// StartDualPipeline queues the combined extraction+matching orchestrator
// for a farm.
func (ps *PipelineService) StartDualPipeline(ctx context.Context, farmID, userID string) (*types.PipelineRun, error) {
	run, err := ps.pipelineModel.QueueRun(ctx, types.PipelineKindDual, farmID, userID)
	if err != nil {
		return nil, err
	}

	ok := ps.pool.Submit(Job{
		Name: fmt.Sprintf("dual-pipeline:%s", run.ID),
		Execute: func(jobCtx context.Context) error {
			return ps.runDualPipeline(jobCtx, run, farmID)
		},
	})
	if !ok {
		if err := ps.pipelineModel.Fail(ctx, run, fmt.Errorf("worker pool queue full")); err != nil {
			ps.log.Errorw("Failed to mark dropped run failed", "runId", run.ID, "error", err)
		}
		return nil, apperrors.PipelineQueueFull()
	}

	return run, nil
}

func (ps *PipelineService) runDualPipeline(ctx context.Context, run *types.PipelineRun, farmID string) error {
	if err := ps.pipelineModel.MarkRunning(ctx, run, 0); err != nil {
		return err
	}

	resp, err := ps.fns.RunDualPipeline(ctx, functions.OrchestrateRequest{
		RunID:  run.ID,
		FarmID: farmID,
	})
	if err != nil {
		return ps.pipelineModel.Fail(ctx, run, err)
	}

	for _, m := range resp.Matches {
		if _, err := ps.subsidyModel.RecordMatch(ctx, &types.SubsidyMatch{
			FarmID:          farmID,
			SubsidyID:       m.SubsidyID,
			Score:           m.Score,
			MatchedCriteria: m.MatchedCriteria,
		}); err != nil {
			ps.log.Warnw("Failed to record match",
				"runId", run.ID, "subsidyId", m.SubsidyID, "error", err)
			run.ItemsFailed++
		}
	}

	run.ItemsTotal = resp.DocumentsSeen
	run.ItemsProcessed = resp.DocumentsSeen
	ps.log.Infow("Dual pipeline finished",
		"runId", run.ID,
		"farmId", farmID,
		"matchesCreated", len(resp.Matches),
		"documentsSeen", resp.DocumentsSeen)

	return ps.pipelineModel.Complete(ctx, run)
}

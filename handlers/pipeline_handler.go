package handlers

import (
	"net/http"

	"github.com/AgriPilot/agripilot-backend/middleware"
	"github.com/AgriPilot/agripilot-backend/models"
	"github.com/AgriPilot/agripilot-backend/services"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/gin-gonic/gin"
)

// PipelineHandler starts asynchronous pipeline runs and reports their
// progress. Runs execute on the worker pool; a 503 means the queue was full
// and the request should be retried later.
type PipelineHandler struct {
	pipelineService *services.PipelineService
	pipelineModel   *models.PipelineModel
}

func NewPipelineHandler(pipelineService *services.PipelineService, pipelineModel *models.PipelineModel) *PipelineHandler {
	return &PipelineHandler{
		pipelineService: pipelineService,
		pipelineModel:   pipelineModel,
	}
}

// StartExtractionHandler godoc
// @Summary Start document extraction
// @Description Queues an extraction run for one uploaded document.
// @Tags pipelines
// @Produce json
// @Param documentID path string true "Document ID"
// @Success 202 {object} types.PipelineRun
// @Failure 503 {object} middleware.ErrorResponse
// @Router /documents/{documentID}/extract [post]
// @Security BearerAuth
func (h *PipelineHandler) StartExtractionHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	run, err := h.pipelineService.StartExtraction(c.Request.Context(), c.Param("documentID"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, run)
}

// StartSubsidySyncHandler godoc
// @Summary Start a full subsidy catalog sync
// @Description Requires the admin role.
// @Tags pipelines
// @Produce json
// @Success 202 {object} types.PipelineRun
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /subsidies/sync [post]
// @Security BearerAuth
func (h *PipelineHandler) StartSubsidySyncHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	run, err := h.pipelineService.StartSubsidySync(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, run)
}

// StartPurgeHandler godoc
// @Summary Purge all of a farm's pipeline data
// @Description Deletes the farm's documents, extractions, and matches both
// @Description upstream and locally. Irreversible. Requires the admin role.
// @Tags pipelines
// @Produce json
// @Param id path string true "Farm ID"
// @Success 202 {object} types.PipelineRun
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /farms/{id}/purge [post]
// @Security BearerAuth
func (h *PipelineHandler) StartPurgeHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	run, err := h.pipelineService.StartPurge(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, run)
}

// StartDualPipelineHandler godoc
// @Summary Run extraction and subsidy matching together
// @Description Queues the combined orchestrator: extracts every unprocessed
// @Description document for the farm and scores subsidy matches from the
// @Description result.
// @Tags pipelines
// @Produce json
// @Param id path string true "Farm ID"
// @Success 202 {object} types.PipelineRun
// @Failure 503 {object} middleware.ErrorResponse
// @Router /farms/{id}/pipeline [post]
// @Security BearerAuth
func (h *PipelineHandler) StartDualPipelineHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	run, err := h.pipelineService.StartDualPipeline(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, run)
}

// GetRunHandler godoc
// @Summary Get a pipeline run's status and progress counters
// @Tags pipelines
// @Produce json
// @Param runID path string true "Run ID"
// @Success 200 {object} types.PipelineRun
// @Failure 404 {object} middleware.ErrorResponse
// @Router /pipelines/{runID} [get]
// @Security BearerAuth
func (h *PipelineHandler) GetRunHandler(c *gin.Context) {
	run, err := h.pipelineModel.GetRun(c.Request.Context(), c.Param("runID"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// ListRunsHandler godoc
// @Summary List pipeline runs
// @Tags pipelines
// @Produce json
// @Param kind query string false "Filter by kind (extraction, subsidy_sync, purge, dual_pipeline)"
// @Param limit query int false "Page size (default 20)"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{}
// @Router /pipelines [get]
// @Security BearerAuth
func (h *PipelineHandler) ListRunsHandler(c *gin.Context) {
	params := getPaginationParams(c, 20, 0)
	kind := types.PipelineKind(c.Query("kind"))

	runs, total, err := h.pipelineModel.ListRuns(c.Request.Context(), kind, params.Limit, params.Offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   runs,
		"total":  total,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

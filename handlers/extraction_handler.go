package handlers

import (
	"net/http"

	"github.com/AgriPilot/agripilot-backend/errors"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/middleware"
	"github.com/AgriPilot/agripilot-backend/models"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/gin-gonic/gin"
)

// ExtractionHandler exposes the field reconciliation workflow: reviewing
// extracted fields, accepting or correcting them per field or per
// confidence tier, and saving the accepted set back to the farm profile.
type ExtractionHandler struct {
	extractionModel *models.ExtractionModel
}

func NewExtractionHandler(extractionModel *models.ExtractionModel) *ExtractionHandler {
	return &ExtractionHandler{extractionModel: extractionModel}
}

// GetExtractionHandler godoc
// @Summary Get an extraction with its working field set
// @Tags extractions
// @Produce json
// @Param extractionID path string true "Extraction ID"
// @Success 200 {object} types.Extraction
// @Failure 404 {object} middleware.ErrorResponse
// @Router /extractions/{extractionID} [get]
// @Security BearerAuth
func (h *ExtractionHandler) GetExtractionHandler(c *gin.Context) {
	ext, err := h.extractionModel.GetExtraction(c.Request.Context(), c.Param("extractionID"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ext)
}

// ListExtractionsHandler godoc
// @Summary List a farm's extractions
// @Tags extractions
// @Produce json
// @Param id path string true "Farm ID"
// @Param limit query int false "Page size (default 20)"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{}
// @Router /farms/{id}/extractions [get]
// @Security BearerAuth
func (h *ExtractionHandler) ListExtractionsHandler(c *gin.Context) {
	params := getPaginationParams(c, 20, 0)

	exts, total, err := h.extractionModel.ListByFarm(c.Request.Context(),
		c.Param("id"), params.Limit, params.Offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   exts,
		"total":  total,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

// AcceptFieldHandler godoc
// @Summary Accept one extracted field
// @Description Marks the field accepted and clears any previous rejection.
// @Tags extractions
// @Produce json
// @Param extractionID path string true "Extraction ID"
// @Param fieldName path string true "Field name"
// @Success 200 {object} types.Extraction
// @Failure 404 {object} middleware.ErrorResponse
// @Router /extractions/{extractionID}/fields/{fieldName}/accept [post]
// @Security BearerAuth
func (h *ExtractionHandler) AcceptFieldHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ext, err := h.extractionModel.AcceptField(c.Request.Context(),
		c.Param("extractionID"), c.Param("fieldName"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ext)
}

// RejectFieldHandler godoc
// @Summary Reject one extracted field
// @Description Marks the field rejected so it is excluded from the save.
// @Tags extractions
// @Produce json
// @Param extractionID path string true "Extraction ID"
// @Param fieldName path string true "Field name"
// @Success 200 {object} types.Extraction
// @Failure 404 {object} middleware.ErrorResponse
// @Router /extractions/{extractionID}/fields/{fieldName}/reject [post]
// @Security BearerAuth
func (h *ExtractionHandler) RejectFieldHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ext, err := h.extractionModel.RejectField(c.Request.Context(),
		c.Param("extractionID"), c.Param("fieldName"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ext)
}

// EditFieldHandler godoc
// @Summary Correct an extracted field's value
// @Description Replaces the field value, snapshots the original for revert,
// @Description and marks the field user-corrected and accepted.
// @Tags extractions
// @Accept json
// @Produce json
// @Param extractionID path string true "Extraction ID"
// @Param fieldName path string true "Field name"
// @Param request body types.FieldEdit true "New value"
// @Success 200 {object} types.Extraction
// @Failure 400 {object} middleware.ErrorResponse
// @Router /extractions/{extractionID}/fields/{fieldName} [put]
// @Security BearerAuth
func (h *ExtractionHandler) EditFieldHandler(c *gin.Context) {
	log := logger.GetLogger()

	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req types.FieldEdit
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Errorw("Invalid request body", "error", err)
		_ = c.Error(errors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	ext, err := h.extractionModel.EditField(c.Request.Context(),
		c.Param("extractionID"), c.Param("fieldName"), userID, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ext)
}

// RevertFieldHandler godoc
// @Summary Revert a corrected field to its original value
// @Description Restores both the original value and the original source the
// @Description field had before the user's edit.
// @Tags extractions
// @Produce json
// @Param extractionID path string true "Extraction ID"
// @Param fieldName path string true "Field name"
// @Success 200 {object} types.Extraction
// @Failure 400 {object} middleware.ErrorResponse
// @Router /extractions/{extractionID}/fields/{fieldName}/revert [post]
// @Security BearerAuth
func (h *ExtractionHandler) RevertFieldHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ext, err := h.extractionModel.RevertField(c.Request.Context(),
		c.Param("extractionID"), c.Param("fieldName"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ext)
}

// tierParam validates the tier path parameter.
func tierParam(c *gin.Context) (types.ConfidenceTier, bool) {
	tier := types.ConfidenceTier(c.Param("tier"))
	if !tier.Valid() {
		_ = c.Error(errors.ValidationFailed("Invalid tier",
			"tier must be one of: high, medium, low"))
		return "", false
	}
	return tier, true
}

// BulkAcceptHandler godoc
// @Summary Accept all fields at or above a confidence tier
// @Description Fields already corrected or accepted by the user are left
// @Description untouched. Returns the number of fields changed.
// @Tags extractions
// @Produce json
// @Param extractionID path string true "Extraction ID"
// @Param tier path string true "Confidence tier (high, medium, low)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} middleware.ErrorResponse
// @Router /extractions/{extractionID}/tiers/{tier}/accept [post]
// @Security BearerAuth
func (h *ExtractionHandler) BulkAcceptHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	tier, ok := tierParam(c)
	if !ok {
		return
	}

	ext, changed, err := h.extractionModel.BulkAcceptByTier(c.Request.Context(),
		c.Param("extractionID"), tier, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"extraction": ext,
		"changed":    changed,
	})
}

// BulkRejectHandler godoc
// @Summary Reject all fields below a confidence tier's ceiling
// @Description User-corrected, accepted, and already-rejected fields are
// @Description left untouched. Returns the number of fields changed.
// @Tags extractions
// @Produce json
// @Param extractionID path string true "Extraction ID"
// @Param tier path string true "Confidence tier (high, medium, low)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} middleware.ErrorResponse
// @Router /extractions/{extractionID}/tiers/{tier}/reject [post]
// @Security BearerAuth
func (h *ExtractionHandler) BulkRejectHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	tier, ok := tierParam(c)
	if !ok {
		return
	}

	ext, changed, err := h.extractionModel.BulkRejectByTier(c.Request.Context(),
		c.Param("extractionID"), tier, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"extraction": ext,
		"changed":    changed,
	})
}

// FilterByTierHandler godoc
// @Summary List an extraction's fields in one confidence tier
// @Tags extractions
// @Produce json
// @Param extractionID path string true "Extraction ID"
// @Param tier path string true "Confidence tier (high, medium, low)"
// @Success 200 {array} types.ExtractedField
// @Failure 400 {object} middleware.ErrorResponse
// @Router /extractions/{extractionID}/tiers/{tier} [get]
// @Security BearerAuth
func (h *ExtractionHandler) FilterByTierHandler(c *gin.Context) {
	tier, ok := tierParam(c)
	if !ok {
		return
	}

	fields, err := h.extractionModel.FilterByTier(c.Request.Context(),
		c.Param("extractionID"), tier)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, fields)
}

// SaveCorrectionsHandler godoc
// @Summary Save accepted fields to the farm profile
// @Description Maps accepted field values onto farm profile columns and
// @Description marks the extraction reviewed. Fields that failed mapping are
// @Description reported as dropped with a reason, not silently discarded.
// @Tags extractions
// @Produce json
// @Param extractionID path string true "Extraction ID"
// @Success 200 {object} models.SaveResult
// @Failure 400 {object} middleware.ErrorResponse
// @Router /extractions/{extractionID}/save [post]
// @Security BearerAuth
func (h *ExtractionHandler) SaveCorrectionsHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	result, err := h.extractionModel.SaveCorrections(c.Request.Context(),
		c.Param("extractionID"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAuditsHandler godoc
// @Summary List the reconciliation audit trail for an extraction
// @Tags extractions
// @Produce json
// @Param extractionID path string true "Extraction ID"
// @Success 200 {array} types.FieldAudit
// @Router /extractions/{extractionID}/audits [get]
// @Security BearerAuth
func (h *ExtractionHandler) ListAuditsHandler(c *gin.Context) {
	audits, err := h.extractionModel.ListAudits(c.Request.Context(), c.Param("extractionID"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, audits)
}

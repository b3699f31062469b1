package handlers

import (
	"net/http"

	"github.com/AgriPilot/agripilot-backend/models"
	"github.com/gin-gonic/gin"
)

type SubsidyHandler struct {
	subsidyModel *models.SubsidyModel
}

func NewSubsidyHandler(subsidyModel *models.SubsidyModel) *SubsidyHandler {
	return &SubsidyHandler{subsidyModel: subsidyModel}
}

// ListSubsidiesHandler godoc
// @Summary List the subsidy catalog
// @Description Lists synced subsidy programmes, closest deadline first. An
// @Description optional region filter narrows the catalog.
// @Tags subsidies
// @Produce json
// @Param region query string false "Filter by region"
// @Param limit query int false "Page size (default 20)"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{}
// @Router /subsidies [get]
// @Security BearerAuth
func (h *SubsidyHandler) ListSubsidiesHandler(c *gin.Context) {
	params := getPaginationParams(c, 20, 0)

	subsidies, total, err := h.subsidyModel.ListSubsidies(c.Request.Context(),
		c.Query("region"), params.Limit, params.Offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   subsidies,
		"total":  total,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

// GetSubsidyHandler godoc
// @Summary Get a subsidy programme
// @Tags subsidies
// @Produce json
// @Param subsidyID path string true "Subsidy ID"
// @Success 200 {object} types.Subsidy
// @Failure 404 {object} middleware.ErrorResponse
// @Router /subsidies/{subsidyID} [get]
// @Security BearerAuth
func (h *SubsidyHandler) GetSubsidyHandler(c *gin.Context) {
	subsidy, err := h.subsidyModel.GetSubsidy(c.Request.Context(), c.Param("subsidyID"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, subsidy)
}

// ListMatchesHandler godoc
// @Summary List a farm's subsidy matches
// @Description Returns orchestrator-scored matches, best score first, with
// @Description the subsidy details hydrated.
// @Tags subsidies
// @Produce json
// @Param id path string true "Farm ID"
// @Success 200 {array} types.SubsidyMatch
// @Router /farms/{id}/matches [get]
// @Security BearerAuth
func (h *SubsidyHandler) ListMatchesHandler(c *gin.Context) {
	matches, err := h.subsidyModel.ListMatches(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, matches)
}

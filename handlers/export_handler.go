package handlers

import (
	"net/http"

	"github.com/AgriPilot/agripilot-backend/errors"
	"github.com/AgriPilot/agripilot-backend/services"
	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	exportService *services.ExportService
}

func NewExportHandler(exportService *services.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// ExportFarmHandler godoc
// @Summary Export a farm's data
// @Description Renders the farm profile, extraction field decisions, and
// @Description subsidy matches as JSON, CSV, or XLSX.
// @Tags exports
// @Produce json
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Farm ID"
// @Param format query string false "Export format (json, csv, xlsx). Defaults to json."
// @Success 200 {file} file
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /farms/{id}/export [get]
// @Security BearerAuth
func (h *ExportHandler) ExportFarmHandler(c *gin.Context) {
	format := services.ExportFormat(c.DefaultQuery("format", string(services.ExportJSON)))
	if !format.Valid() {
		_ = c.Error(errors.ValidationFailed("Invalid export format",
			"format must be one of: json, csv, xlsx"))
		return
	}

	data, fileName, err := h.exportService.ExportFarm(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, format.ContentType(), data)
}

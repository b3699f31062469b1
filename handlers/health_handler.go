package handlers

import (
	"net/http"

	"github.com/AgriPilot/agripilot-backend/services"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	healthService *services.HealthService
}

func NewHealthHandler(healthService *services.HealthService) *HealthHandler {
	return &HealthHandler{healthService: healthService}
}

// GetHealthHandler godoc
// @Summary Service health
// @Description Reports the status of the service and its dependencies.
// @Tags health
// @Produce json
// @Success 200 {object} types.HealthCheck
// @Failure 503 {object} types.HealthCheck
// @Router /health [get]
func (h *HealthHandler) GetHealthHandler(c *gin.Context) {
	check := h.healthService.CheckHealth(c.Request.Context())

	status := http.StatusOK
	if check.Status == types.HealthStatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, check)
}

// LivenessHandler reports only that the process is serving requests.
func (h *HealthHandler) LivenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

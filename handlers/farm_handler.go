package handlers

import (
	"net/http"
	"strconv"

	"github.com/AgriPilot/agripilot-backend/errors"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/middleware"
	"github.com/AgriPilot/agripilot-backend/models"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/gin-gonic/gin"
)

// PaginationParams defines pagination parameters.
type PaginationParams struct {
	Limit  int
	Offset int
}

// getPaginationParams extracts and validates pagination parameters from the
// request query.
func getPaginationParams(c *gin.Context, defaultLimit, defaultOffset int) PaginationParams {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", strconv.Itoa(defaultOffset)))
	if err != nil || offset < 0 {
		offset = defaultOffset
	}

	return PaginationParams{Limit: limit, Offset: offset}
}

type FarmHandler struct {
	farmModel *models.FarmModel
}

func NewFarmHandler(farmModel *models.FarmModel) *FarmHandler {
	return &FarmHandler{farmModel: farmModel}
}

// CreateFarmHandler godoc
// @Summary Create a farm profile
// @Description Creates a farm profile owned by the authenticated user.
// @Tags farms
// @Accept json
// @Produce json
// @Param request body types.FarmCreate true "Farm details"
// @Success 201 {object} types.Farm
// @Failure 400 {object} middleware.ErrorResponse
// @Router /farms [post]
// @Security BearerAuth
func (h *FarmHandler) CreateFarmHandler(c *gin.Context) {
	log := logger.GetLogger()

	var req types.FarmCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Errorw("Invalid request body", "error", err)
		_ = c.Error(errors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	farm, err := h.farmModel.CreateFarm(c.Request.Context(), userID, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, farm)
}

// GetFarmHandler godoc
// @Summary Get a farm profile
// @Tags farms
// @Produce json
// @Param id path string true "Farm ID"
// @Success 200 {object} types.Farm
// @Failure 404 {object} middleware.ErrorResponse
// @Router /farms/{id} [get]
// @Security BearerAuth
func (h *FarmHandler) GetFarmHandler(c *gin.Context) {
	farm, err := h.farmModel.GetFarm(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, farm)
}

// ListFarmsHandler godoc
// @Summary List the authenticated user's farms
// @Tags farms
// @Produce json
// @Param limit query int false "Page size (default 20)"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{}
// @Router /farms [get]
// @Security BearerAuth
func (h *FarmHandler) ListFarmsHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	params := getPaginationParams(c, 20, 0)

	farms, total, err := h.farmModel.ListFarms(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   farms,
		"total":  total,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

// UpdateFarmHandler godoc
// @Summary Update a farm profile
// @Description Applies a partial update. Only the farm owner may update it.
// @Tags farms
// @Accept json
// @Produce json
// @Param id path string true "Farm ID"
// @Param request body types.FarmUpdate true "Fields to update"
// @Success 200 {object} types.Farm
// @Failure 403 {object} middleware.ErrorResponse
// @Router /farms/{id} [put]
// @Security BearerAuth
func (h *FarmHandler) UpdateFarmHandler(c *gin.Context) {
	log := logger.GetLogger()

	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req types.FarmUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Errorw("Invalid request body", "error", err)
		_ = c.Error(errors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	farm, err := h.farmModel.UpdateFarm(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, farm)
}

// DeleteFarmHandler godoc
// @Summary Delete a farm profile
// @Description Soft-deletes the farm. Only the farm owner may delete it.
// @Tags farms
// @Produce json
// @Param id path string true "Farm ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} middleware.ErrorResponse
// @Router /farms/{id} [delete]
// @Security BearerAuth
func (h *FarmHandler) DeleteFarmHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := h.farmModel.DeleteFarm(c.Request.Context(), c.Param("id"), userID); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Farm deleted successfully"})
}

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

type ReviewHandler struct {
	reviewModel *models.ReviewModel
}

func NewReviewHandler(reviewModel *models.ReviewModel) *ReviewHandler {
	return &ReviewHandler{reviewModel: reviewModel}
}

// AssignReviewHandler godoc
// @Summary Assign an extraction to a reviewer
// @Description Queues the extraction for manual review and notifies the
// @Description reviewer by email when notifications are enabled.
// @Tags reviews
// @Accept json
// @Produce json
// @Param request body types.ReviewAssignmentCreate true "Assignment details"
// @Success 201 {object} types.ReviewAssignment
// @Failure 400 {object} middleware.ErrorResponse
// @Router /reviews [post]
// @Security BearerAuth
func (h *ReviewHandler) AssignReviewHandler(c *gin.Context) {
	log := logger.GetLogger()

	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req types.ReviewAssignmentCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Errorw("Invalid request body", "error", err)
		_ = c.Error(errors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	assignment, err := h.reviewModel.Assign(c.Request.Context(), &req, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// ListReviewQueueHandler godoc
// @Summary List the authenticated reviewer's queue
// @Description Returns assignments ordered by priority then age. An optional
// @Description status filter narrows the queue.
// @Tags reviews
// @Produce json
// @Param status query string false "Filter by status (assigned, in_review, completed)"
// @Param limit query int false "Page size (default 20)"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{}
// @Router /reviews/queue [get]
// @Security BearerAuth
func (h *ReviewHandler) ListReviewQueueHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	params := getPaginationParams(c, 20, 0)
	status := types.ReviewStatus(c.Query("status"))

	assignments, total, err := h.reviewModel.ListQueue(c.Request.Context(),
		userID, status, params.Limit, params.Offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   assignments,
		"total":  total,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

// GetReviewHandler godoc
// @Summary Get a review assignment
// @Tags reviews
// @Produce json
// @Param reviewID path string true "Assignment ID"
// @Success 200 {object} types.ReviewAssignment
// @Failure 404 {object} middleware.ErrorResponse
// @Router /reviews/{reviewID} [get]
// @Security BearerAuth
func (h *ReviewHandler) GetReviewHandler(c *gin.Context) {
	assignment, err := h.reviewModel.GetAssignment(c.Request.Context(), c.Param("reviewID"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// StartReviewHandler godoc
// @Summary Start working on an assignment
// @Description Moves the assignment from assigned to in_review. Only the
// @Description assigned reviewer can start it.
// @Tags reviews
// @Produce json
// @Param reviewID path string true "Assignment ID"
// @Success 200 {object} types.ReviewAssignment
// @Failure 409 {object} middleware.ErrorResponse
// @Router /reviews/{reviewID}/start [post]
// @Security BearerAuth
func (h *ReviewHandler) StartReviewHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	assignment, err := h.reviewModel.Start(c.Request.Context(), c.Param("reviewID"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// CompleteReviewHandler godoc
// @Summary Complete an assignment
// @Description Moves the assignment from in_review to completed.
// @Tags reviews
// @Produce json
// @Param reviewID path string true "Assignment ID"
// @Success 200 {object} types.ReviewAssignment
// @Failure 409 {object} middleware.ErrorResponse
// @Router /reviews/{reviewID}/complete [post]
// @Security BearerAuth
func (h *ReviewHandler) CompleteReviewHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	assignment, err := h.reviewModel.Complete(c.Request.Context(), c.Param("reviewID"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

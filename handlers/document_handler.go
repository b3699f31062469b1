package handlers

import (
	"net/http"

	"github.com/AgriPilot/agripilot-backend/errors"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/middleware"
	"github.com/AgriPilot/agripilot-backend/models"
	"github.com/AgriPilot/agripilot-backend/services"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	documentModel *models.DocumentModel
}

func NewDocumentHandler(documentModel *models.DocumentModel) *DocumentHandler {
	return &DocumentHandler{documentModel: documentModel}
}

// UploadDocumentHandler godoc
// @Summary Upload a document to a farm
// @Description Accepts a multipart file upload. The content type is sniffed
// @Description from the file body, not trusted from the client.
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Farm ID"
// @Param file formData file true "Document file"
// @Param category formData string false "Document category (land, financial, legal, application, other)"
// @Success 201 {object} types.Document
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 413 {object} middleware.ErrorResponse
// @Router /farms/{id}/documents [post]
// @Security BearerAuth
func (h *DocumentHandler) UploadDocumentHandler(c *gin.Context) {
	log := logger.GetLogger()

	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		_ = c.Error(errors.ValidationFailed("Missing file", "multipart field 'file' is required"))
		return
	}

	category := types.DocumentCategory(c.DefaultPostForm("category", string(types.DocumentCategoryOther)))

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorw("Failed to open uploaded file", "error", err, "fileName", fileHeader.Filename)
		_ = c.Error(errors.InternalServerError("Failed to read uploaded file"))
		return
	}
	defer file.Close()

	contentType, body, err := services.SniffContentType(file)
	if err != nil {
		_ = c.Error(errors.ValidationFailed("Unreadable file", err.Error()))
		return
	}

	doc, err := h.documentModel.Upload(c.Request.Context(),
		c.Param("id"), userID, fileHeader.Filename, contentType, fileHeader.Size, body, category)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// ListDocumentsHandler godoc
// @Summary List a farm's documents
// @Tags documents
// @Produce json
// @Param id path string true "Farm ID"
// @Param category query string false "Filter by category"
// @Param limit query int false "Page size (default 20)"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{}
// @Router /farms/{id}/documents [get]
// @Security BearerAuth
func (h *DocumentHandler) ListDocumentsHandler(c *gin.Context) {
	params := getPaginationParams(c, 20, 0)
	category := types.DocumentCategory(c.Query("category"))

	docs, total, err := h.documentModel.ListDocuments(c.Request.Context(),
		c.Param("id"), category, params.Limit, params.Offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   docs,
		"total":  total,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

// GetDocumentHandler godoc
// @Summary Get document metadata
// @Tags documents
// @Produce json
// @Param documentID path string true "Document ID"
// @Success 200 {object} types.Document
// @Failure 404 {object} middleware.ErrorResponse
// @Router /documents/{documentID} [get]
// @Security BearerAuth
func (h *DocumentHandler) GetDocumentHandler(c *gin.Context) {
	doc, err := h.documentModel.GetDocument(c.Request.Context(), c.Param("documentID"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// DownloadDocumentHandler godoc
// @Summary Get a presigned download URL for a document
// @Description The URL is short-lived; clients should fetch it on demand
// @Description rather than store it.
// @Tags documents
// @Produce json
// @Param documentID path string true "Document ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} middleware.ErrorResponse
// @Router /documents/{documentID}/download [get]
// @Security BearerAuth
func (h *DocumentHandler) DownloadDocumentHandler(c *gin.Context) {
	url, err := h.documentModel.DownloadURL(c.Request.Context(), c.Param("documentID"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// DeleteDocumentHandler godoc
// @Summary Delete a document
// @Description Removes both the stored object and its metadata. Allowed for
// @Description the uploader or the farm owner.
// @Tags documents
// @Produce json
// @Param documentID path string true "Document ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} middleware.ErrorResponse
// @Router /documents/{documentID} [delete]
// @Security BearerAuth
func (h *DocumentHandler) DeleteDocumentHandler(c *gin.Context) {
	userID := c.GetString(string(middleware.UserIDKey))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := h.documentModel.DeleteDocument(c.Request.Context(), c.Param("documentID"), userID); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}

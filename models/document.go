package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	apperrors "github.com/AgriPilot/agripilot-backend/errors"
	"github.com/AgriPilot/agripilot-backend/internal/store"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/google/uuid"
)

// ObjectStorage is the blob store the document model uploads into. The S3
// service implements it.
type ObjectStorage interface {
	Upload(ctx context.Context, key, contentType string, size int64, body io.Reader) error
	PresignDownload(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// DocumentModel owns document upload and lifecycle rules.
type DocumentModel struct {
	store          store.DocumentStore
	farmModel      *FarmModel
	storage        ObjectStorage
	maxUploadBytes int64
}

func NewDocumentModel(store store.DocumentStore, farmModel *FarmModel, storage ObjectStorage, maxUploadBytes int64) *DocumentModel {
	return &DocumentModel{
		store:          store,
		farmModel:      farmModel,
		storage:        storage,
		maxUploadBytes: maxUploadBytes,
	}
}

var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/tiff":      true,
}

// Upload stores the file body and records its metadata. The caller passes
// the sniffed content type; extension alone is never trusted.
func (dm *DocumentModel) Upload(ctx context.Context, farmID, userID, fileName, contentType string, size int64, body io.Reader, category types.DocumentCategory) (*types.Document, error) {
	log := logger.GetLogger()

	if _, err := dm.farmModel.GetFarm(ctx, farmID); err != nil {
		return nil, err
	}

	if size <= 0 {
		return nil, apperrors.ValidationFailed("invalid_document", "file is empty")
	}
	if size > dm.maxUploadBytes {
		return nil, apperrors.ValidationFailed("invalid_document",
			fmt.Sprintf("file exceeds the %d byte upload limit", dm.maxUploadBytes))
	}
	if !allowedContentTypes[contentType] {
		return nil, apperrors.ValidationFailed("invalid_document",
			fmt.Sprintf("unsupported content type %q", contentType))
	}
	if category == "" {
		category = types.DocumentCategoryOther
	}

	key := fmt.Sprintf("farms/%s/documents/%s%s", farmID, uuid.NewString(), safeExt(fileName))
	if err := dm.storage.Upload(ctx, key, contentType, size, body); err != nil {
		log.Errorw("Failed to upload document", "farmId", farmID, "key", key, "error", err)
		return nil, apperrors.ExternalServiceFailed("storage", err)
	}

	doc := &types.Document{
		FarmID:      farmID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   size,
		Category:    category,
		StorageKey:  key,
		UploadedBy:  userID,
	}

	id, err := dm.store.CreateDocument(ctx, doc)
	if err != nil {
		// Best effort: do not leave an orphan object behind.
		if delErr := dm.storage.Delete(ctx, key); delErr != nil {
			log.Warnw("Failed to clean up orphan object", "key", key, "error", delErr)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	doc.ID = id

	return doc, nil
}

func (dm *DocumentModel) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	doc, err := dm.store.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.DocumentNotFound(id)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return doc, nil
}

// DownloadURL returns a short-lived presigned URL for the document body.
func (dm *DocumentModel) DownloadURL(ctx context.Context, id string) (string, error) {
	doc, err := dm.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}

	url, err := dm.storage.PresignDownload(ctx, doc.StorageKey)
	if err != nil {
		return "", apperrors.ExternalServiceFailed("storage", err)
	}
	return url, nil
}

func (dm *DocumentModel) ListDocuments(ctx context.Context, farmID string, category types.DocumentCategory, limit, offset int) ([]*types.Document, int, error) {
	limit, offset = normalizePage(limit, offset)

	docs, total, err := dm.store.ListDocuments(ctx, farmID, category, limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewDatabaseError(err)
	}
	return docs, total, nil
}

func (dm *DocumentModel) DeleteDocument(ctx context.Context, id, userID string) error {
	log := logger.GetLogger()

	doc, err := dm.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	farm, err := dm.farmModel.GetFarm(ctx, doc.FarmID)
	if err != nil {
		return err
	}
	if farm.OwnerID != userID && doc.UploadedBy != userID {
		return apperrors.Forbidden("forbidden", "only the uploader or the farm owner can delete a document")
	}

	if err := dm.store.DeleteDocument(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.DocumentNotFound(id)
		}
		return apperrors.NewDatabaseError(err)
	}

	if err := dm.storage.Delete(ctx, doc.StorageKey); err != nil {
		log.Warnw("Failed to delete stored object", "key", doc.StorageKey, "error", err)
	}

	return nil
}

func safeExt(fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	switch ext {
	case ".pdf", ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return ext
	}
	return ""
}

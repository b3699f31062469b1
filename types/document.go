package types

import "time"

// DocumentCategory groups uploaded documents for review filtering.
type DocumentCategory string

const (
	DocumentCategoryLand        DocumentCategory = "land"
	DocumentCategoryFinancial   DocumentCategory = "financial"
	DocumentCategoryLegal       DocumentCategory = "legal"
	DocumentCategoryApplication DocumentCategory = "application"
	DocumentCategoryOther       DocumentCategory = "other"
)

// Document is an uploaded file attached to a farm. The object itself lives
// in the S3-compatible store under StorageKey; only metadata is kept here.
type Document struct {
	ID          string           `json:"id"`
	FarmID      string           `json:"farmId"`
	FileName    string           `json:"fileName"`
	ContentType string           `json:"contentType"`
	SizeBytes   int64            `json:"sizeBytes"`
	Category    DocumentCategory `json:"category"`
	StorageKey  string           `json:"-"`
	UploadedBy  string           `json:"uploadedBy"`
	CreatedAt   time.Time        `json:"createdAt"`
}

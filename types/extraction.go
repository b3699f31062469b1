package types

import (
	"time"
)

// FieldSource tracks who last produced an extracted field's value. The
// lifecycle moves "more human" over time: rule-based extraction, then AI
// classification, then a reviewer's correction. Backwards moves are only
// possible through the explicit revert edge.
type FieldSource string

const (
	SourceExtracted     FieldSource = "extracted"
	SourceAIClassified  FieldSource = "ai_classified"
	SourceUserCorrected FieldSource = "user_corrected"
)

// legalSourceTransitions is the transition table for FieldSource. The revert
// edge (user_corrected back to the snapshotted source) is handled separately
// in CanRevertTo since its target depends on the field's history.
var legalSourceTransitions = map[FieldSource][]FieldSource{
	SourceExtracted:     {SourceAIClassified, SourceUserCorrected},
	SourceAIClassified:  {SourceUserCorrected},
	SourceUserCorrected: {},
}

// CanTransitionTo reports whether a forward move from s to next is legal.
func (s FieldSource) CanTransitionTo(next FieldSource) bool {
	if s == next {
		return true
	}
	for _, allowed := range legalSourceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanRevertTo reports whether s may revert to the snapshotted source. Only a
// user correction can be reverted, and only to one of the machine sources.
func (s FieldSource) CanRevertTo(original FieldSource) bool {
	return s == SourceUserCorrected &&
		(original == SourceExtracted || original == SourceAIClassified)
}

// Valid reports whether s is a known source value.
func (s FieldSource) Valid() bool {
	switch s {
	case SourceExtracted, SourceAIClassified, SourceUserCorrected:
		return true
	}
	return false
}

// ConfidenceTier buckets a confidence score using closed, fixed thresholds.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"

	// Tier thresholds. high: >= 0.8, medium: >= 0.5 and < 0.8, low: < 0.5.
	HighConfidenceThreshold   = 0.8
	MediumConfidenceThreshold = 0.5
)

// TierFor classifies a confidence score into its tier.
func TierFor(confidence float64) ConfidenceTier {
	switch {
	case confidence >= HighConfidenceThreshold:
		return TierHigh
	case confidence >= MediumConfidenceThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// Floor returns the minimum confidence admitted to the tier.
func (t ConfidenceTier) Floor() float64 {
	switch t {
	case TierHigh:
		return HighConfidenceThreshold
	case TierMedium:
		return MediumConfidenceThreshold
	default:
		return 0
	}
}

// Ceiling returns the exclusive upper confidence bound of the tier.
func (t ConfidenceTier) Ceiling() float64 {
	switch t {
	case TierHigh:
		return 1.0000001 // confidence is capped at 1; high has no exclusive bound
	case TierMedium:
		return HighConfidenceThreshold
	default:
		return MediumConfidenceThreshold
	}
}

// Valid reports whether t is a known tier value.
func (t ConfidenceTier) Valid() bool {
	switch t {
	case TierHigh, TierMedium, TierLow:
		return true
	}
	return false
}

// ExtractedField is one field of an extraction's working set during review.
// OriginalValue and OriginalSource snapshot the pre-edit state so a
// correction can be reverted; both value and source are restored on revert.
type ExtractedField struct {
	FieldName      string      `json:"fieldName"`
	Value          string      `json:"value"`
	Confidence     float64     `json:"confidence"`
	Source         FieldSource `json:"source"`
	Accepted       bool        `json:"accepted"`
	Rejected       bool        `json:"rejected"`
	Modified       bool        `json:"modified"`
	OriginalValue  *string     `json:"originalValue,omitempty"`
	OriginalSource FieldSource `json:"originalSource,omitempty"`
	Notes          string      `json:"notes,omitempty"`
}

// Tier returns the field's confidence tier.
func (f *ExtractedField) Tier() ConfidenceTier {
	return TierFor(f.Confidence)
}

// ExtractionStatus is the lifecycle of an extraction run.
type ExtractionStatus string

const (
	ExtractionStatusPending    ExtractionStatus = "pending"
	ExtractionStatusProcessing ExtractionStatus = "processing"
	ExtractionStatusCompleted  ExtractionStatus = "completed"
	ExtractionStatusFailed     ExtractionStatus = "failed"
)

// Extraction is the stored result of an OCR/AI run against a document.
// Failed runs keep a zero confidence and an empty field set alongside the
// error message.
type Extraction struct {
	ID                string           `json:"id"`
	DocumentID        string           `json:"documentId"`
	FarmID            string           `json:"farmId"`
	Status            ExtractionStatus `json:"status"`
	OverallConfidence float64          `json:"overallConfidence"`
	Fields            []ExtractedField `json:"fields"`
	Error             string           `json:"error,omitempty"`
	ReviewedBy        *string          `json:"reviewedBy,omitempty"`
	ReviewedAt        *time.Time       `json:"reviewedAt,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// FieldByName returns a pointer into Fields for the named field, or nil.
func (e *Extraction) FieldByName(name string) *ExtractedField {
	for i := range e.Fields {
		if e.Fields[i].FieldName == name {
			return &e.Fields[i]
		}
	}
	return nil
}

// FieldEdit is a reviewer's correction to a single field.
type FieldEdit struct {
	Value string `json:"value" binding:"required"`
	Notes string `json:"notes,omitempty"`
}

// FieldAudit records one reconciliation decision for the audit trail.
type FieldAudit struct {
	ID           string      `json:"id"`
	ExtractionID string      `json:"extractionId"`
	FieldName    string      `json:"fieldName"`
	Action       string      `json:"action"`
	OldValue     string      `json:"oldValue,omitempty"`
	NewValue     string      `json:"newValue,omitempty"`
	OldSource    FieldSource `json:"oldSource,omitempty"`
	NewSource    FieldSource `json:"newSource,omitempty"`
	ActorID      string      `json:"actorId"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// Audit actions recorded during reconciliation.
const (
	AuditActionAccept     = "accept"
	AuditActionReject     = "reject"
	AuditActionEdit       = "edit"
	AuditActionRevert     = "revert"
	AuditActionBulkAccept = "bulk_accept"
	AuditActionBulkReject = "bulk_reject"
	AuditActionSave       = "save"
)

package functions

// Function names deployed alongside the service. The client appends these to
// the configured base URL.
const (
	FnClassifyExtractedFields = "classify-extracted-fields"
	FnEnhancedExtraction      = "enhanced-franceagrimer-extraction"
	FnSubsidyFullSync         = "les-aides-full-sync"
	FnDataPurge               = "data-purge"
	FnDualPipeline            = "dual-pipeline-orchestrator"
)

// Envelope is the wire format every edge function responds with.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ClassifyRequest asks the classifier to label raw extracted text fields.
type ClassifyRequest struct {
	ExtractionID string            `json:"extraction_id"`
	Fields       map[string]string `json:"fields"`
	DocumentText string            `json:"document_text,omitempty"`
}

// ClassifiedField is one classifier output field.
type ClassifiedField struct {
	FieldName  string  `json:"field_name"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// ClassifyResponse is the classifier's validated payload.
type ClassifyResponse struct {
	Fields []ClassifiedField `json:"fields"`
}

// ExtractionRequest triggers the enhanced extraction run for a document.
type ExtractionRequest struct {
	DocumentID  string `json:"document_id"`
	DocumentURL string `json:"document_url"`
	FarmID      string `json:"farm_id"`
}

// ExtractionResponse is the extraction function's payload.
type ExtractionResponse struct {
	OverallConfidence float64           `json:"overall_confidence"`
	Fields            []ClassifiedField `json:"fields"`
}

// SyncRequest triggers a full catalog sync from the upstream aid registry.
type SyncRequest struct {
	RunID string `json:"run_id"`
	Since string `json:"since,omitempty"`
}

// SyncSubsidy is one catalog entry in the sync function's payload.
type SyncSubsidy struct {
	Code          string   `json:"code"`
	Title         string   `json:"title"`
	Agency        string   `json:"agency"`
	Description   string   `json:"description,omitempty"`
	FundingAmount float64  `json:"funding_amount"`
	Currency      string   `json:"currency,omitempty"`
	Deadline      string   `json:"deadline,omitempty"`
	Regions       []string `json:"regions,omitempty"`
	Eligibility   []string `json:"eligibility,omitempty"`
}

// SyncResponse carries the refreshed catalog rows plus change counts.
type SyncResponse struct {
	Imported  int           `json:"imported"`
	Updated   int           `json:"updated"`
	Removed   int           `json:"removed"`
	Subsidies []SyncSubsidy `json:"subsidies"`
}

// PurgeRequest asks the purge function to delete data for a farm.
type PurgeRequest struct {
	FarmID    string `json:"farm_id"`
	DryRun    bool   `json:"dry_run,omitempty"`
	Requested string `json:"requested_by"`
}

// PurgeResponse reports purged row counts per table.
type PurgeResponse struct {
	Deleted map[string]int `json:"deleted"`
}

// OrchestrateRequest starts the dual extraction+matching pipeline for a farm.
type OrchestrateRequest struct {
	RunID  string `json:"run_id"`
	FarmID string `json:"farm_id"`
}

// OrchestratedMatch is one subsidy match scored by the orchestrator.
type OrchestratedMatch struct {
	SubsidyID       string   `json:"subsidy_id"`
	Score           float64  `json:"score"`
	MatchedCriteria []string `json:"matched_criteria,omitempty"`
}

// OrchestrateResponse reports the orchestrator's match output.
type OrchestrateResponse struct {
	MatchesCreated int                 `json:"matches_created"`
	DocumentsSeen  int                 `json:"documents_seen"`
	Matches        []OrchestratedMatch `json:"matches"`
}

package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subsidy is one entry of the subsidy catalog, refreshed by the sync
// pipeline from the upstream aid registry.
type Subsidy struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Title         string          `json:"title"`
	Agency        string          `json:"agency"`
	Description   string          `json:"description,omitempty"`
	FundingAmount decimal.Decimal `json:"fundingAmount"`
	Currency      string          `json:"currency"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	Regions       []string        `json:"regions,omitempty"`
	Eligibility   []string        `json:"eligibility,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// SubsidyMatch links a farm to a subsidy with the orchestrator's score.
type SubsidyMatch struct {
	ID              string    `json:"id"`
	FarmID          string    `json:"farmId"`
	SubsidyID       string    `json:"subsidyId"`
	Score           float64   `json:"score"`
	MatchedCriteria []string  `json:"matchedCriteria,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`

	// Subsidy is populated on list queries for display.
	Subsidy *Subsidy `json:"subsidy,omitempty"`
}

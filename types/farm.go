package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Farm is a farm profile record.
type Farm struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	OwnerID       string          `json:"ownerId"`
	Address       string          `json:"address,omitempty"`
	Region        string          `json:"region,omitempty"`
	LegalStatus   string          `json:"legalStatus,omitempty"`
	TotalHectares decimal.Decimal `json:"totalHectares"`
	LandUseTypes  []string        `json:"landUseTypes,omitempty"`
	ContactEmail  string          `json:"contactEmail,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// FarmCreate is the request body for creating a farm.
type FarmCreate struct {
	Name          string          `json:"name" binding:"required"`
	Address       string          `json:"address"`
	Region        string          `json:"region"`
	LegalStatus   string          `json:"legalStatus"`
	TotalHectares decimal.Decimal `json:"totalHectares"`
	LandUseTypes  []string        `json:"landUseTypes"`
	ContactEmail  string          `json:"contactEmail"`
	Phone         string          `json:"phone"`
}

// FarmUpdate carries optional field updates; nil fields are left unchanged.
type FarmUpdate struct {
	Name          *string          `json:"name,omitempty"`
	Address       *string          `json:"address,omitempty"`
	Region        *string          `json:"region,omitempty"`
	LegalStatus   *string          `json:"legalStatus,omitempty"`
	TotalHectares *decimal.Decimal `json:"totalHectares,omitempty"`
	LandUseTypes  []string         `json:"landUseTypes,omitempty"`
	ContactEmail  *string          `json:"contactEmail,omitempty"`
	Phone         *string          `json:"phone,omitempty"`
}

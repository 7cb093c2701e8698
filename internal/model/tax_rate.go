package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRate stores the base rate of a jurisdiction with temporal validity.
type TaxRate struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JurisdictionKey string          `gorm:"type:varchar(64);not null;index" json:"jurisdiction_key"`
	Rate            decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"rate"`        // Percent, e.g. 8.875
	EffectiveFrom   time.Time       `gorm:"type:date;not null;index" json:"effective_from"` // Start date
	EffectiveTo     *time.Time      `gorm:"type:date;index" json:"effective_to"`            // End date, nullable = currently active
	Description     string          `gorm:"type:text" json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

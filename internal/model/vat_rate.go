package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VATRate keys are country keys such as "UK" or "EU-DE", separate from jurisdiction keys.
type VATRate struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CountryKey string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"country_key"`
	Rate       decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"rate"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NexusThreshold is the economic nexus trigger of a jurisdiction.
// TransactionThreshold 0 means only revenue counts.
type NexusThreshold struct {
	ID                   uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JurisdictionKey      string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"jurisdiction_key"`
	RevenueThreshold     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"revenue_threshold"`
	TransactionThreshold int64           `gorm:"not null;default:0" json:"transaction_threshold"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

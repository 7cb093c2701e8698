package model

import (
	"time"

	"github.com/google/uuid"
)

// Jurisdiction is a tax authority scope. JurisdictionKey is derived from
// Country and StateProvince and is the join key for rates, rules and thresholds.
type Jurisdiction struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name"`
	Code            string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`
	Country         string    `gorm:"type:varchar(10);not null;index" json:"country"`
	StateProvince   string    `gorm:"type:varchar(50)" json:"state_province"`
	JurisdictionKey string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"jurisdiction_key"`
	TaxAuthority    string    `gorm:"type:varchar(255)" json:"tax_authority"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateJurisdiction   = "CREATE_JURISDICTION"
	ActionUpdateJurisdiction   = "UPDATE_JURISDICTION"
	ActionDeleteJurisdiction   = "DELETE_JURISDICTION"
	ActionCreateTaxRate        = "CREATE_TAX_RATE"
	ActionUpdateTaxRate        = "UPDATE_TAX_RATE"
	ActionDeleteTaxRate        = "DELETE_TAX_RATE"
	ActionCreateTaxRule        = "CREATE_TAX_RULE"
	ActionUpdateTaxRule        = "UPDATE_TAX_RULE"
	ActionDeleteTaxRule        = "DELETE_TAX_RULE"
	ActionCreateNexusThreshold = "CREATE_NEXUS_THRESHOLD"
	ActionUpdateNexusThreshold = "UPDATE_NEXUS_THRESHOLD"
	ActionDeleteNexusThreshold = "DELETE_NEXUS_THRESHOLD"
	ActionCreateVATRate        = "CREATE_VAT_RATE"
	ActionUpdateVATRate        = "UPDATE_VAT_RATE"
	ActionDeleteVATRate        = "DELETE_VAT_RATE"
	ActionRecordTransaction    = "RECORD_TRANSACTION"
	ActionDeleteTransaction    = "DELETE_TRANSACTION"
)

// AuditLog tracks What and When for configuration changes and recorded transactions
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Actor      string    `gorm:"type:varchar(100);index" json:"actor"` // Free-form caller id from X-Actor, "system" when absent
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string    `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

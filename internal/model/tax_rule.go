package model

import (
	"time"

	"taxcalc/internal/engine"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRule is the stored form of an engine rule. Conditions are kept as JSON so
// rules stay data only.
type TaxRule struct {
	ID              uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JurisdictionKey string             `gorm:"type:varchar(64);not null;index:idx_tax_rules_key_position" json:"jurisdiction_key"`
	Name            string             `gorm:"type:varchar(255);not null" json:"name"`
	Description     string             `gorm:"type:text" json:"description"`
	Kind            string             `gorm:"type:varchar(20);not null" json:"kind"`                                 // EXEMPTION, RATE_OVERRIDE, THRESHOLD
	Position        int                `gorm:"not null;default:0;index:idx_tax_rules_key_position" json:"position"`   // Evaluation order within the jurisdiction
	Conditions      []engine.Condition `gorm:"type:jsonb;serializer:json" json:"conditions"`
	TransformKind   string             `gorm:"type:varchar(10)" json:"transform_kind"`                                // KEEP, ZERO, SCALE, SET
	TransformValue  decimal.Decimal    `gorm:"type:decimal(10,4);not null;default:0" json:"transform_value"`
	Threshold       decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0" json:"threshold"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// ToEngine converts the row into the rule the engine evaluates.
func (r TaxRule) ToEngine() engine.Rule {
	return engine.Rule{
		ID:              r.ID.String(),
		JurisdictionKey: r.JurisdictionKey,
		Name:            r.Name,
		Description:     r.Description,
		Kind:            engine.RuleKind(r.Kind),
		Position:        r.Position,
		Conditions:      r.Conditions,
		Transform:       engine.Transform{Kind: engine.TransformKind(r.TransformKind), Value: r.TransformValue},
		Threshold:       r.Threshold,
	}
}

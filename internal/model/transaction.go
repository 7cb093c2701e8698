package model

import (
	"time"

	"taxcalc/internal/engine"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxDetail is the stored per-line breakdown of a recorded calculation.
type TaxDetail struct {
	Name          string          `json:"name"`
	ProductType   string          `json:"product_type"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	EffectiveRate decimal.Decimal `json:"effective_rate"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	RuleName      string          `json:"rule_name,omitempty"`
	Exemption     bool            `json:"exemption"`
}

// Transaction is a recorded calculation. Totals are computed server side.
type Transaction struct {
	ID               uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TransactionDate  time.Time               `gorm:"not null;index" json:"transaction_date"`
	CustomerID       string                  `gorm:"type:varchar(100);index" json:"customer_id"`
	Location         engine.CustomerLocation `gorm:"type:jsonb;serializer:json;not null" json:"customer_location"`
	Items            []engine.LineItem       `gorm:"type:jsonb;serializer:json;not null" json:"items"`
	JurisdictionKey  string                  `gorm:"type:varchar(64);not null;index" json:"jurisdiction_key"`
	JurisdictionName string                  `gorm:"type:varchar(255)" json:"jurisdiction_name"`
	Subtotal         decimal.Decimal         `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	TaxRate          decimal.Decimal         `gorm:"type:decimal(10,4);not null" json:"tax_rate"`
	TaxAmount        decimal.Decimal         `gorm:"type:decimal(18,2);not null" json:"tax_amount"`
	Total            decimal.Decimal         `gorm:"type:decimal(18,2);not null" json:"total"`
	TaxDetails       []TaxDetail             `gorm:"type:jsonb;serializer:json" json:"tax_details"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// NewTransaction captures a calculation result for storage.
func NewTransaction(customerID string, date time.Time, loc engine.CustomerLocation, items []engine.LineItem, res *engine.CalculationResult) *Transaction {
	details := make([]TaxDetail, 0, len(res.Lines))
	for _, l := range res.Lines {
		d := TaxDetail{
			Name:          l.Name,
			ProductType:   l.ProductType,
			Subtotal:      l.Subtotal,
			EffectiveRate: l.EffectiveRate,
			TaxAmount:     l.TaxAmount,
		}
		if l.AppliedRule != nil {
			d.RuleName = l.AppliedRule.Name
			d.Exemption = l.AppliedRule.Exemption
		}
		details = append(details, d)
	}
	return &Transaction{
		TransactionDate:  date,
		CustomerID:       customerID,
		Location:         loc,
		Items:            items,
		JurisdictionKey:  res.JurisdictionKey,
		JurisdictionName: res.JurisdictionDisplayName,
		Subtotal:         res.Subtotal,
		TaxRate:          res.TaxRate,
		TaxAmount:        res.TaxAmount,
		Total:            res.Total,
		TaxDetails:       details,
	}
}

package engine

import "github.com/shopspring/decimal"

// Default reference configuration for digital goods. It seeds empty databases
// and backs the engine tests.

func DefaultRates() []RateEntry {
	return []RateEntry{
		{JurisdictionKey: "US-CA", BaseRate: decimal.RequireFromString("8.5"), DisplayName: "California"},
		{JurisdictionKey: "US-NY", BaseRate: decimal.RequireFromString("8.875"), DisplayName: "New York"},
		{JurisdictionKey: "US-TX", BaseRate: decimal.RequireFromString("6.25"), DisplayName: "Texas"},
		{JurisdictionKey: "US-FL", BaseRate: decimal.RequireFromString("6"), DisplayName: "Florida"},
		{JurisdictionKey: "CA-ON", BaseRate: decimal.RequireFromString("13"), DisplayName: "Ontario"},
		{JurisdictionKey: "CA-BC", BaseRate: decimal.RequireFromString("12"), DisplayName: "British Columbia"},
		{JurisdictionKey: "CA-QC", BaseRate: decimal.RequireFromString("14.975"), DisplayName: "Quebec"},
		{JurisdictionKey: "UK-", BaseRate: decimal.RequireFromString("20"), DisplayName: "United Kingdom"},
	}
}

func DefaultRules() []Rule {
	return []Rule{
		{
			JurisdictionKey: "US-CA",
			Name:            "Digital Products Exemption",
			Description:     "Some digital products are exempt from sales tax in California",
			Kind:            RuleKindExemption,
			Position:        1,
			Conditions: []Condition{
				{Field: FieldProductType, Operator: OpIn, Values: []string{"E-book", "Digital Media"}},
			},
			Transform: Transform{Kind: TransformZero},
		},
		{
			JurisdictionKey: "US-CA",
			Name:            "SaaS Rule",
			Description:     "SaaS products are taxable in California",
			Kind:            RuleKindRateOverride,
			Position:        2,
			Conditions: []Condition{
				{Field: FieldProductType, Operator: OpEq, Value: "Digital Software"},
				{Field: FieldName, Operator: OpContains, Value: "saas"},
			},
			Transform: Transform{Kind: TransformKeep},
		},
		{
			JurisdictionKey: "US-NY",
			Name:            "Educational Materials Discount",
			Description:     "Educational materials have a reduced tax rate in New York",
			Kind:            RuleKindRateOverride,
			Position:        1,
			Conditions: []Condition{
				{Field: FieldProductType, Operator: OpEq, Value: "Online Course"},
			},
			Transform: Transform{Kind: TransformScale, Value: decimal.RequireFromString("0.5")},
		},
		{
			JurisdictionKey: "UK-",
			Name:            "Zero-rated Publications",
			Description:     "Certain digital publications are zero-rated in the UK",
			Kind:            RuleKindExemption,
			Position:        1,
			Conditions: []Condition{
				{Field: FieldProductType, Operator: OpEq, Value: "E-book"},
				{Field: FieldName, Operator: OpNotContains, Value: "game"},
			},
			Transform: Transform{Kind: TransformZero},
		},
	}
}

func DefaultNexusThresholds() []NexusThreshold {
	return []NexusThreshold{
		{JurisdictionKey: "US-CA", RevenueThreshold: decimal.NewFromInt(500000)},
		{JurisdictionKey: "US-NY", RevenueThreshold: decimal.NewFromInt(500000), TransactionThreshold: 100},
		{JurisdictionKey: "US-TX", RevenueThreshold: decimal.NewFromInt(500000)},
		{JurisdictionKey: "US-FL", RevenueThreshold: decimal.NewFromInt(100000), TransactionThreshold: 200},
	}
}

func DefaultVATRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"UK":    decimal.NewFromInt(20),
		"EU-DE": decimal.NewFromInt(19),
		"EU-FR": decimal.NewFromInt(20),
		"EU-ES": decimal.NewFromInt(21),
	}
}

// DefaultMemoryStore returns a MemoryStore loaded with the reference configuration.
func DefaultMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	for _, r := range DefaultRates() {
		s.PutRate(r)
	}
	for _, r := range DefaultRules() {
		s.AddRule(r)
	}
	for _, t := range DefaultNexusThresholds() {
		s.PutNexusThreshold(t)
	}
	for k, v := range DefaultVATRates() {
		s.PutVATRate(k, v)
	}
	return s
}

package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is a single basket entry. It is not mutated during a calculation.
type LineItem struct {
	Name        string          `json:"name"`
	ProductType string          `json:"product_type"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// Subtotal returns unit price times quantity, unrounded.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// CustomerLocation identifies where the buyer is taxed.
type CustomerLocation struct {
	Country         string `json:"country"`
	StateOrProvince string `json:"state_province,omitempty"`
	City            string `json:"city,omitempty"`
	PostalCode      string `json:"postal_code,omitempty"`
	VATID           string `json:"vat_id,omitempty"`
}

// JurisdictionKey returns the lookup identity used by rate, rule and nexus tables.
func (l CustomerLocation) JurisdictionKey() string {
	return JurisdictionKey(l.Country, l.StateOrProvince)
}

// IsB2B reports whether the buyer supplied a VAT registration id.
func (l CustomerLocation) IsB2B() bool {
	return strings.TrimSpace(l.VATID) != ""
}

// Validate rejects a location without a country.
func (l CustomerLocation) Validate() error {
	if strings.TrimSpace(l.Country) == "" {
		return NewValidationError("country", "customer location with country is required")
	}
	return nil
}

// JurisdictionKey builds the canonical "country-state" key. The state may be empty ("UK-").
func JurisdictionKey(country, state string) string {
	return strings.TrimSpace(country) + "-" + strings.TrimSpace(state)
}

// ValidateLineItems rejects an empty basket and items that break the data model constraints.
func ValidateLineItems(items []LineItem) error {
	if len(items) == 0 {
		return NewValidationError("items", "at least one line item is required")
	}
	for i, item := range items {
		if item.UnitPrice.IsNegative() {
			return NewValidationError(fmt.Sprintf("items[%d].unit_price", i), "must not be negative")
		}
		if item.Quantity < 1 {
			return NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
	}
	return nil
}

package engine

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// EUPrefix marks country keys inside the EU VAT area, e.g. "EU-DE".
const EUPrefix = "EU-"

// VATDetermination explains the VAT rate chosen for a sale.
type VATDetermination struct {
	CountryKey    string          `json:"country_key"`
	Rate          decimal.Decimal `json:"rate"`
	ReverseCharge bool            `json:"reverse_charge"`
	Configured    bool            `json:"configured"`
}

type VATEvaluator struct {
	source VATSource
}

func NewVATEvaluator(source VATSource) *VATEvaluator {
	return &VATEvaluator{source: source}
}

// VATRate returns the VAT percentage for the sale. B2B buyers inside the EU prefix
// convention self-assess (reverse charge) and are charged 0. The product does not
// influence the rate.
func (e *VATEvaluator) VATRate(ctx context.Context, item LineItem, loc CustomerLocation) (decimal.Decimal, error) {
	d, err := e.Determine(ctx, item, loc)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Rate, nil
}

func (e *VATEvaluator) Determine(ctx context.Context, _ LineItem, loc CustomerLocation) (VATDetermination, error) {
	country := strings.TrimSpace(loc.Country)
	if country == "" {
		return VATDetermination{}, NewValidationError("country", "customer location with country is required")
	}
	d := VATDetermination{CountryKey: country, Rate: decimal.Zero}
	if loc.IsB2B() && strings.HasPrefix(country, EUPrefix) {
		d.ReverseCharge = true
		return d, nil
	}
	rate, err := e.source.GetVATRate(ctx, country)
	if err != nil {
		return VATDetermination{}, lookupFailed("get vat rate", country, err)
	}
	if rate != nil {
		d.Rate = *rate
		d.Configured = true
	}
	return d, nil
}

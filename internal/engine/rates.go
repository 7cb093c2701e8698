package engine

import (
	"context"

	"github.com/shopspring/decimal"
)

// UnknownJurisdictionName is the display name used when no rate is configured.
const UnknownJurisdictionName = "Unknown"

// RateEntry is the base rate of a jurisdiction. BaseRate is a percentage: 8.5 means 8.5%.
type RateEntry struct {
	JurisdictionKey string          `json:"jurisdiction_key"`
	BaseRate        decimal.Decimal `json:"base_rate"`
	DisplayName     string          `json:"display_name"`
	// Configured is set by RateTable.Lookup when the source returned an entry.
	Configured bool `json:"configured"`
}

// UnknownRate is the zero-rate fallback for keys without a configured rate.
func UnknownRate(key string) RateEntry {
	return RateEntry{JurisdictionKey: key, BaseRate: decimal.Zero, DisplayName: UnknownJurisdictionName}
}

// IsUnknown reports whether the entry is the fallback sentinel.
func (r RateEntry) IsUnknown() bool {
	return !r.Configured
}

// RateTable resolves jurisdiction keys to base rates.
type RateTable struct {
	source RateSource
}

func NewRateTable(source RateSource) *RateTable {
	return &RateTable{source: source}
}

// Lookup never fails for an unconfigured key; it fails only when the source does.
func (t *RateTable) Lookup(ctx context.Context, key string) (RateEntry, error) {
	entry, err := t.source.GetRate(ctx, key)
	if err != nil {
		return RateEntry{}, lookupFailed("get rate", key, err)
	}
	if entry == nil {
		return UnknownRate(key), nil
	}
	out := *entry
	out.JurisdictionKey = key
	out.Configured = true
	if out.DisplayName == "" {
		out.DisplayName = key
	}
	return out, nil
}

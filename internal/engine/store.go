package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type asOfKey struct{}

// WithAsOf asks date-aware stores for the configuration in force on date
// instead of today.
func WithAsOf(ctx context.Context, date time.Time) context.Context {
	return context.WithValue(ctx, asOfKey{}, date)
}

// AsOf returns the date set by WithAsOf.
func AsOf(ctx context.Context) (time.Time, bool) {
	date, ok := ctx.Value(asOfKey{}).(time.Time)
	return date, ok
}

// RateSource returns the rate configured for a jurisdiction key, or nil when none is.
type RateSource interface {
	GetRate(ctx context.Context, jurisdictionKey string) (*RateEntry, error)
}

// RuleSource returns the rules for a jurisdiction key in declaration order.
type RuleSource interface {
	GetRules(ctx context.Context, jurisdictionKey string) ([]Rule, error)
}

// ThresholdSource returns the economic nexus threshold for a key, or nil when none is.
type ThresholdSource interface {
	GetNexusThreshold(ctx context.Context, jurisdictionKey string) (*NexusThreshold, error)
}

// VATSource returns the VAT rate for a country key ("UK", "EU-DE"), or nil when none is.
type VATSource interface {
	GetVATRate(ctx context.Context, countryKey string) (*decimal.Decimal, error)
}

// ConfigStore is the full set of lookups the engine makes into its configuration collaborator.
type ConfigStore interface {
	RateSource
	RuleSource
	ThresholdSource
	VATSource
}

package engine

import (
	"context"

	"github.com/shopspring/decimal"
)

// NexusThreshold is the economic nexus trigger of a jurisdiction.
// A zero TransactionThreshold disables the transaction-count test.
type NexusThreshold struct {
	JurisdictionKey      string          `json:"jurisdiction_key"`
	RevenueThreshold     decimal.Decimal `json:"revenue_threshold"`
	TransactionThreshold int64           `json:"transaction_threshold"`
}

// Met reports whether the figures reach the threshold.
func (t NexusThreshold) Met(f SalesFigures) bool {
	if f.Revenue.GreaterThanOrEqual(t.RevenueThreshold) {
		return true
	}
	return t.TransactionThreshold > 0 && f.TransactionCount >= t.TransactionThreshold
}

// SalesFigures are accumulated sales into one jurisdiction.
type SalesFigures struct {
	Revenue          decimal.Decimal `json:"revenue"`
	TransactionCount int64           `json:"transaction_count"`
}

// SalesRecord maps jurisdiction keys to accumulated sales. The engine only reads it.
type SalesRecord map[string]SalesFigures

// For returns the figures for key, zero when absent.
func (s SalesRecord) For(key string) SalesFigures {
	if f, ok := s[key]; ok {
		return f
	}
	return SalesFigures{Revenue: decimal.Zero}
}

// NexusStatus is the outcome of a nexus check for one jurisdiction.
type NexusStatus struct {
	JurisdictionKey string          `json:"jurisdiction_key"`
	HasNexus        bool            `json:"has_nexus"`
	Configured      bool            `json:"configured"`
	Sales           SalesFigures    `json:"sales"`
	Threshold       *NexusThreshold `json:"threshold,omitempty"`
}

type NexusEvaluator struct {
	source ThresholdSource
}

func NewNexusEvaluator(source ThresholdSource) *NexusEvaluator {
	return &NexusEvaluator{source: source}
}

// HasNexus returns false when no threshold is configured for key.
func (e *NexusEvaluator) HasNexus(ctx context.Context, sales SalesRecord, key string) (bool, error) {
	status, err := e.check(ctx, sales, key)
	if err != nil {
		return false, err
	}
	return status.HasNexus, nil
}

// Evaluate checks every key and returns one status per key, in the given order.
func (e *NexusEvaluator) Evaluate(ctx context.Context, sales SalesRecord, keys []string) ([]NexusStatus, error) {
	out := make([]NexusStatus, 0, len(keys))
	for _, key := range keys {
		status, err := e.check(ctx, sales, key)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}

func (e *NexusEvaluator) check(ctx context.Context, sales SalesRecord, key string) (NexusStatus, error) {
	status := NexusStatus{JurisdictionKey: key, Sales: sales.For(key)}
	threshold, err := e.source.GetNexusThreshold(ctx, key)
	if err != nil {
		return NexusStatus{}, lookupFailed("get nexus threshold", key, err)
	}
	if threshold == nil {
		return status, nil
	}
	status.Configured = true
	status.Threshold = threshold
	status.HasNexus = threshold.Met(status.Sales)
	return status, nil
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"taxcalc/internal/engine"
	"taxcalc/internal/repository"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

// NexusCheckRequest identifies the jurisdiction either by key or by location.
// When Revenue is empty the figures come from recorded transactions in [From, To].
type NexusCheckRequest struct {
	JurisdictionKey  string `json:"jurisdiction_key"`
	Country          string `json:"country"`
	StateProvince    string `json:"state_province"`
	Revenue          string `json:"revenue"`
	TransactionCount int64  `json:"transaction_count"`
	From             string `json:"from"` // YYYY-MM-DD
	To               string `json:"to"`   // YYYY-MM-DD
}

type NexusReport struct {
	From          string               `json:"from"`
	To            string               `json:"to"`
	Jurisdictions []engine.NexusStatus `json:"jurisdictions"`
}

// --- Interface ---

type NexusService interface {
	Check(ctx context.Context, req NexusCheckRequest) (*engine.NexusStatus, error)
	Report(ctx context.Context, from, to string) (*NexusReport, error)
}

type nexusService struct {
	evaluator    *engine.NexusEvaluator
	thresholds   repository.NexusThresholdRepository
	transactions repository.TransactionRepository
	now          func() time.Time
}

func NewNexusService(source engine.ThresholdSource, thresholds repository.NexusThresholdRepository, transactions repository.TransactionRepository) NexusService {
	return &nexusService{
		evaluator:    engine.NewNexusEvaluator(source),
		thresholds:   thresholds,
		transactions: transactions,
		now:          time.Now,
	}
}

// --- Implementation ---

func (s *nexusService) Check(ctx context.Context, req NexusCheckRequest) (*engine.NexusStatus, error) {
	key := strings.TrimSpace(req.JurisdictionKey)
	if key == "" {
		if strings.TrimSpace(req.Country) == "" {
			return nil, invalid("jurisdiction_key", "jurisdiction_key or country is required")
		}
		key = engine.JurisdictionKey(req.Country, req.StateProvince)
	}

	var sales engine.SalesRecord
	if strings.TrimSpace(req.Revenue) != "" {
		revenue, err := decimal.NewFromString(strings.TrimSpace(req.Revenue))
		if err != nil {
			return nil, invalid("revenue", "must be a decimal number")
		}
		if revenue.IsNegative() || req.TransactionCount < 0 {
			return nil, invalid("revenue", "sales figures must not be negative")
		}
		sales = engine.SalesRecord{key: {Revenue: revenue, TransactionCount: req.TransactionCount}}
	} else {
		from, to, err := s.window(req.From, req.To)
		if err != nil {
			return nil, err
		}
		if sales, err = s.salesRecord(ctx, from, to); err != nil {
			return nil, err
		}
	}

	statuses, err := s.evaluator.Evaluate(ctx, sales, []string{key})
	if err != nil {
		return nil, err
	}
	return &statuses[0], nil
}

// Report evaluates every jurisdiction that has a threshold or recorded sales in the window.
func (s *nexusService) Report(ctx context.Context, fromStr, toStr string) (*NexusReport, error) {
	from, to, err := s.window(fromStr, toStr)
	if err != nil {
		return nil, err
	}

	sales, err := s.salesRecord(ctx, from, to)
	if err != nil {
		return nil, err
	}
	thresholds, err := s.thresholds.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nexus thresholds: %w", err)
	}

	seen := make(map[string]struct{}, len(thresholds)+len(sales))
	for _, t := range thresholds {
		seen[t.JurisdictionKey] = struct{}{}
	}
	for key := range sales {
		seen[key] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	statuses, err := s.evaluator.Evaluate(ctx, sales, keys)
	if err != nil {
		return nil, err
	}
	return &NexusReport{
		From:          from.Format("2006-01-02"),
		To:            to.Format("2006-01-02"),
		Jurisdictions: statuses,
	}, nil
}

// --- Helpers ---

func (s *nexusService) salesRecord(ctx context.Context, from, to time.Time) (engine.SalesRecord, error) {
	rows, err := s.transactions.SalesByJurisdiction(ctx, from, endOfDay(to))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}
	sales := make(engine.SalesRecord, len(rows))
	for _, r := range rows {
		sales[r.JurisdictionKey] = engine.SalesFigures{Revenue: r.Revenue, TransactionCount: r.TransactionCount}
	}
	return sales, nil
}

// window defaults to the current calendar year in UTC.
func (s *nexusService) window(fromStr, toStr string) (time.Time, time.Time, error) {
	now := s.now().UTC()
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)

	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, invalid("from", "expected YYYY-MM-DD")
		}
		from = t
	}
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, invalid("to", "expected YYYY-MM-DD")
		}
		to = t
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, invalid("to", "must not be before from")
	}
	return from, to, nil
}

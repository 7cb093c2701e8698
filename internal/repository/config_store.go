package repository

import (
	"context"
	"errors"
	"time"

	"taxcalc/internal/engine"

	"github.com/shopspring/decimal"
)

// ConfigStore serves engine lookups from the repositories. It does not cache:
// every calculation reads the rows committed before it started.
type ConfigStore struct {
	jurisdictions JurisdictionRepository
	rates         TaxRateRepository
	rules         TaxRuleRepository
	thresholds    NexusThresholdRepository
	vat           VATRateRepository
	now           func() time.Time
}

var _ engine.ConfigStore = (*ConfigStore)(nil)

func NewConfigStore(
	jurisdictions JurisdictionRepository,
	rates TaxRateRepository,
	rules TaxRuleRepository,
	thresholds NexusThresholdRepository,
	vat VATRateRepository,
) *ConfigStore {
	return &ConfigStore{
		jurisdictions: jurisdictions,
		rates:         rates,
		rules:         rules,
		thresholds:    thresholds,
		vat:           vat,
		now:           time.Now,
	}
}

// CalendarDate truncates t to its UTC date. Rate validity is compared by day
// so a rate stays active for the whole of its end date.
func CalendarDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// WithClock overrides the date used to pick the active rate.
func (s *ConfigStore) WithClock(now func() time.Time) *ConfigStore {
	s.now = now
	return s
}

// GetRate returns the rate active today, or on the engine.AsOf date when the
// context carries one. The jurisdiction name is the display
// name; a rate without a jurisdiction record is shown under its key.
func (s *ConfigStore) GetRate(ctx context.Context, key string) (*engine.RateEntry, error) {
	at := s.now()
	if date, ok := engine.AsOf(ctx); ok {
		at = date
	}
	rate, err := s.rates.FindActive(ctx, key, at)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	name := key
	j, err := s.jurisdictions.FindByKey(ctx, key)
	switch {
	case err == nil:
		name = j.Name
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	return &engine.RateEntry{JurisdictionKey: key, BaseRate: rate.Rate, DisplayName: name}, nil
}

func (s *ConfigStore) GetRules(ctx context.Context, key string) ([]engine.Rule, error) {
	rows, err := s.rules.FindByJurisdiction(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]engine.Rule, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToEngine())
	}
	return out, nil
}

func (s *ConfigStore) GetNexusThreshold(ctx context.Context, key string) (*engine.NexusThreshold, error) {
	t, err := s.thresholds.FindByKey(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &engine.NexusThreshold{
		JurisdictionKey:      t.JurisdictionKey,
		RevenueThreshold:     t.RevenueThreshold,
		TransactionThreshold: t.TransactionThreshold,
	}, nil
}

func (s *ConfigStore) GetVATRate(ctx context.Context, countryKey string) (*decimal.Decimal, error) {
	rate, err := s.vat.FindByCountry(ctx, countryKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate.Rate, nil
}

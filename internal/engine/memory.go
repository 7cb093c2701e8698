package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process ConfigStore. Each write is applied under the lock,
// so a calculation sees the configuration either before or after it.
type MemoryStore struct {
	mu         sync.RWMutex
	rates      map[string]RateEntry
	rules      map[string][]Rule
	thresholds map[string]NexusThreshold
	vat        map[string]decimal.Decimal
}

var _ ConfigStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rates:      make(map[string]RateEntry),
		rules:      make(map[string][]Rule),
		thresholds: make(map[string]NexusThreshold),
		vat:        make(map[string]decimal.Decimal),
	}
}

func (s *MemoryStore) GetRate(_ context.Context, key string) (*RateEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.rates[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (s *MemoryStore) GetRules(_ context.Context, key string) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules := s.rules[key]
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out, nil
}

func (s *MemoryStore) GetNexusThreshold(_ context.Context, key string) (*NexusThreshold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.thresholds[key]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *MemoryStore) GetVATRate(_ context.Context, countryKey string) (*decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.vat[countryKey]
	if !ok {
		return nil, nil
	}
	return &rate, nil
}

func (s *MemoryStore) PutRate(entry RateEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[entry.JurisdictionKey] = entry
}

func (s *MemoryStore) DeleteRate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rates, key)
}

// AddRule appends rule to its jurisdiction, keeping the list ordered by Position.
// Rules with equal positions keep insertion order.
func (s *MemoryStore) AddRule(rule Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules := append(s.rules[rule.JurisdictionKey], rule)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Position < rules[j].Position })
	s.rules[rule.JurisdictionKey] = rules
}

// ReplaceRules swaps the full rule list of a jurisdiction in one step.
func (s *MemoryStore) ReplaceRules(key string, rules []Rule) {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[key] = cp
}

func (s *MemoryStore) PutNexusThreshold(t NexusThreshold) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds[t.JurisdictionKey] = t
}

func (s *MemoryStore) PutVATRate(countryKey string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vat[countryKey] = rate
}

// Rates returns every configured rate, sorted by key.
func (s *MemoryStore) Rates() []RateEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RateEntry, 0, len(s.rates))
	for _, r := range s.rates {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JurisdictionKey < out[j].JurisdictionKey })
	return out
}

// Rules returns every rule, grouped by key in key order.
func (s *MemoryStore) Rules() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.rules))
	for k := range s.rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []Rule
	for _, k := range keys {
		out = append(out, s.rules[k]...)
	}
	return out
}

// NexusThresholds returns every threshold, sorted by key.
func (s *MemoryStore) NexusThresholds() []NexusThreshold {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]NexusThreshold, 0, len(s.thresholds))
	for _, t := range s.thresholds {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JurisdictionKey < out[j].JurisdictionKey })
	return out
}

// VATRates returns a copy of the VAT table.
func (s *MemoryStore) VATRates() map[string]decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(s.vat))
	for k, v := range s.vat {
		out[k] = v
	}
	return out
}

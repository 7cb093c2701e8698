// Package repotest provides in-memory repositories for tests of the layers
// above the database.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taxcalc/internal/model"
	"taxcalc/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store holds one table per repository. SetErr makes every call fail.
type Store struct {
	mu  sync.Mutex
	err error

	Jurisdictions *Jurisdictions
	Rates         *TaxRates
	Rules         *TaxRules
	Thresholds    *NexusThresholds
	VAT           *VATRates
	Transactions  *Transactions
	Audit         *AuditLogs

	clock time.Time
}

func New() *Store {
	s := &Store{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.Jurisdictions = &Jurisdictions{s: s, rows: map[uuid.UUID]model.Jurisdiction{}}
	s.Rates = &TaxRates{s: s, rows: map[uuid.UUID]model.TaxRate{}}
	s.Rules = &TaxRules{s: s, rows: map[uuid.UUID]model.TaxRule{}}
	s.Thresholds = &NexusThresholds{s: s, rows: map[uuid.UUID]model.NexusThreshold{}}
	s.VAT = &VATRates{s: s, rows: map[uuid.UUID]model.VATRate{}}
	s.Transactions = &Transactions{s: s, rows: map[uuid.UUID]model.Transaction{}}
	s.Audit = &AuditLogs{s: s}
	return s
}

// ConfigStore wires a repository.ConfigStore over the in-memory tables.
func (s *Store) ConfigStore() *repository.ConfigStore {
	return repository.NewConfigStore(s.Jurisdictions, s.Rates, s.Rules, s.Thresholds, s.VAT)
}

func (s *Store) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// begin locks the store and returns the injected error, if any.
func (s *Store) begin() error {
	s.mu.Lock()
	return s.err
}

func (s *Store) end() { s.mu.Unlock() }

// tick returns strictly increasing timestamps so created_at ordering is stable.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func page[T any](rows []T, pageNum, limit int) []T {
	if limit <= 0 {
		return rows
	}
	if pageNum < 1 {
		pageNum = 1
	}
	start := (pageNum - 1) * limit
	if start >= len(rows) {
		return []T{}
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// --- Jurisdictions ---

type Jurisdictions struct {
	s    *Store
	rows map[uuid.UUID]model.Jurisdiction
}

var _ repository.JurisdictionRepository = (*Jurisdictions)(nil)

func (r *Jurisdictions) Create(_ context.Context, j *model.Jurisdiction) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	j.CreatedAt = r.s.tick()
	j.UpdatedAt = j.CreatedAt
	r.rows[j.ID] = *j
	return nil
}

func (r *Jurisdictions) Update(_ context.Context, j *model.Jurisdiction) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	j.UpdatedAt = r.s.tick()
	r.rows[j.ID] = *j
	return nil
}

func (r *Jurisdictions) Delete(_ context.Context, id uuid.UUID) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	delete(r.rows, id)
	return nil
}

func (r *Jurisdictions) FindByID(_ context.Context, id uuid.UUID) (*model.Jurisdiction, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, err
	}
	j, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &j, nil
}

func (r *Jurisdictions) FindByKey(_ context.Context, key string) (*model.Jurisdiction, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, err
	}
	for _, j := range r.rows {
		if j.JurisdictionKey == key {
			return &j, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Jurisdictions) List(_ context.Context, pageNum, limit int) ([]model.Jurisdiction, int64, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, 0, err
	}
	out := make([]model.Jurisdiction, 0, len(r.rows))
	for _, j := range r.rows {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, pageNum, limit), int64(len(out)), nil
}

// --- Tax rates ---

type TaxRates struct {
	s    *Store
	rows map[uuid.UUID]model.TaxRate
}

var _ repository.TaxRateRepository = (*TaxRates)(nil)

func (r *TaxRates) Create(_ context.Context, rate *model.TaxRate) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	if rate.ID == uuid.Nil {
		rate.ID = uuid.New()
	}
	rate.CreatedAt = r.s.tick()
	rate.UpdatedAt = rate.CreatedAt
	r.rows[rate.ID] = *rate
	return nil
}

func (r *TaxRates) Update(_ context.Context, rate *model.TaxRate) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	rate.UpdatedAt = r.s.tick()
	r.rows[rate.ID] = *rate
	return nil
}

func (r *TaxRates) Delete(_ context.Context, id uuid.UUID) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	delete(r.rows, id)
	return nil
}

func (r *TaxRates) FindByID(_ context.Context, id uuid.UUID) (*model.TaxRate, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, err
	}
	rate, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rate, nil
}

func (r *TaxRates) List(_ context.Context, key string, pageNum, limit int) ([]model.TaxRate, int64, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, 0, err
	}
	var out []model.TaxRate
	for _, rate := range r.rows {
		if key == "" || rate.JurisdictionKey == key {
			out = append(out, rate)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveFrom.After(out[j].EffectiveFrom) })
	return page(out, pageNum, limit), int64(len(out)), nil
}

func (r *TaxRates) FindActive(_ context.Context, key string, targetDate time.Time) (*model.TaxRate, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, err
	}
	day := repository.CalendarDate(targetDate)
	var best *model.TaxRate
	for _, rate := range r.rows {
		if rate.JurisdictionKey != key || repository.CalendarDate(rate.EffectiveFrom).After(day) {
			continue
		}
		if rate.EffectiveTo != nil && repository.CalendarDate(*rate.EffectiveTo).Before(day) {
			continue
		}
		if best == nil || rate.EffectiveFrom.After(best.EffectiveFrom) {
			cp := rate
			best = &cp
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (r *TaxRates) CountOverlapping(_ context.Context, key string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return 0, err
	}
	var count int64
	for _, rate := range r.rows {
		if rate.JurisdictionKey != key || (excludeID != nil && rate.ID == *excludeID) {
			continue
		}
		if to != nil && rate.EffectiveFrom.After(*to) {
			continue
		}
		if rate.EffectiveTo != nil && rate.EffectiveTo.Before(from) {
			continue
		}
		count++
	}
	return count, nil
}

// --- Tax rules ---

type TaxRules struct {
	s    *Store
	rows map[uuid.UUID]model.TaxRule
}

var _ repository.TaxRuleRepository = (*TaxRules)(nil)

func (r *TaxRules) Create(_ context.Context, rule *model.TaxRule) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	rule.CreatedAt = r.s.tick()
	rule.UpdatedAt = rule.CreatedAt
	r.rows[rule.ID] = *rule
	return nil
}

func (r *TaxRules) Update(_ context.Context, rule *model.TaxRule) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	rule.UpdatedAt = r.s.tick()
	r.rows[rule.ID] = *rule
	return nil
}

func (r *TaxRules) Delete(_ context.Context, id uuid.UUID) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	delete(r.rows, id)
	return nil
}

func (r *TaxRules) FindByID(_ context.Context, id uuid.UUID) (*model.TaxRule, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, err
	}
	rule, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rule, nil
}

func (r *TaxRules) List(_ context.Context, key string, pageNum, limit int) ([]model.TaxRule, int64, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, 0, err
	}
	out := r.ordered(func(rule model.TaxRule) bool { return key == "" || rule.JurisdictionKey == key })
	return page(out, pageNum, limit), int64(len(out)), nil
}

func (r *TaxRules) FindByJurisdiction(_ context.Context, key string) ([]model.TaxRule, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, err
	}
	return r.ordered(func(rule model.TaxRule) bool { return rule.JurisdictionKey == key }), nil
}

func (r *TaxRules) ordered(keep func(model.TaxRule) bool) []model.TaxRule {
	out := []model.TaxRule{}
	for _, rule := range r.rows {
		if keep(rule) {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.JurisdictionKey != b.JurisdictionKey {
			return a.JurisdictionKey < b.JurisdictionKey
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}

// --- Nexus thresholds ---

type NexusThresholds struct {
	s    *Store
	rows map[uuid.UUID]model.NexusThreshold
}

var _ repository.NexusThresholdRepository = (*NexusThresholds)(nil)

func (r *NexusThresholds) Create(_ context.Context, t *model.NexusThreshold) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = r.s.tick()
	t.UpdatedAt = t.CreatedAt
	r.rows[t.ID] = *t
	return nil
}

func (r *NexusThresholds) Update(_ context.Context, t *model.NexusThreshold) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	t.UpdatedAt = r.s.tick()
	r.rows[t.ID] = *t
	return nil
}

func (r *NexusThresholds) Delete(_ context.Context, id uuid.UUID) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	delete(r.rows, id)
	return nil
}

func (r *NexusThresholds) FindByID(_ context.Context, id uuid.UUID) (*model.NexusThreshold, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, err
	}
	t, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *NexusThresholds) FindByKey(_ context.Context, key string) (*model.NexusThreshold, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, err
	}
	for _, t := range r.rows {
		if t.JurisdictionKey == key {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *NexusThresholds) ListAll(_ context.Context) ([]model.NexusThreshold, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, err
	}
	out := make([]model.NexusThreshold, 0, len(r.rows))
	for _, t := range r.rows {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JurisdictionKey < out[j].JurisdictionKey })
	return out, nil
}

// --- VAT rates ---

type VATRates struct {
	s    *Store
	rows map[uuid.UUID]model.VATRate
}

var _ repository.VATRateRepository = (*VATRates)(nil)

func (r *VATRates) Create(_ context.Context, v *model.VATRate) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = r.s.tick()
	v.UpdatedAt = v.CreatedAt
	r.rows[v.ID] = *v
	return nil
}

func (r *VATRates) Update(_ context.Context, v *model.VATRate) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	v.UpdatedAt = r.s.tick()
	r.rows[v.ID] = *v
	return nil
}

func (r *VATRates) Delete(_ context.Context, id uuid.UUID) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	delete(r.rows, id)
	return nil
}

func (r *VATRates) FindByID(_ context.Context, id uuid.UUID) (*model.VATRate, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, err
	}
	v, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (r *VATRates) FindByCountry(_ context.Context, countryKey string) (*model.VATRate, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, err
	}
	for _, v := range r.rows {
		if v.CountryKey == countryKey {
			return &v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *VATRates) ListAll(_ context.Context) ([]model.VATRate, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, err
	}
	out := make([]model.VATRate, 0, len(r.rows))
	for _, v := range r.rows {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CountryKey < out[j].CountryKey })
	return out, nil
}

// --- Transactions ---

type Transactions struct {
	s    *Store
	rows map[uuid.UUID]model.Transaction
}

var _ repository.TransactionRepository = (*Transactions)(nil)

func (r *Transactions) Create(_ context.Context, tx *model.Transaction) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.CreatedAt = r.s.tick()
	tx.UpdatedAt = tx.CreatedAt
	r.rows[tx.ID] = *tx
	return nil
}

func (r *Transactions) Delete(_ context.Context, id uuid.UUID) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	delete(r.rows, id)
	return nil
}

func (r *Transactions) FindByID(_ context.Context, id uuid.UUID) (*model.Transaction, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, err
	}
	tx, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tx, nil
}

func (r *Transactions) List(_ context.Context, f repository.TransactionFilter, pageNum, limit int) ([]model.Transaction, int64, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, 0, err
	}
	out := []model.Transaction{}
	for _, tx := range r.rows {
		if f.JurisdictionKey != "" && tx.JurisdictionKey != f.JurisdictionKey {
			continue
		}
		if f.CustomerID != "" && tx.CustomerID != f.CustomerID {
			continue
		}
		if f.From != nil && tx.TransactionDate.Before(*f.From) {
			continue
		}
		if f.To != nil && tx.TransactionDate.After(*f.To) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionDate.After(out[j].TransactionDate) })
	return page(out, pageNum, limit), int64(len(out)), nil
}

func (r *Transactions) SalesByJurisdiction(_ context.Context, from, to time.Time) ([]repository.SalesRow, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, err
	}
	byKey := map[string]*repository.SalesRow{}
	for _, tx := range r.rows {
		if tx.TransactionDate.Before(from) || tx.TransactionDate.After(to) {
			continue
		}
		row, ok := byKey[tx.JurisdictionKey]
		if !ok {
			row = &repository.SalesRow{JurisdictionKey: tx.JurisdictionKey, Revenue: decimal.Zero}
			byKey[tx.JurisdictionKey] = row
		}
		row.Revenue = row.Revenue.Add(tx.Subtotal)
		row.TransactionCount++
	}
	out := make([]repository.SalesRow, 0, len(byKey))
	for _, row := range byKey {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JurisdictionKey < out[j].JurisdictionKey })
	return out, nil
}

// --- Audit logs ---

type AuditLogs struct {
	s    *Store
	rows []model.AuditLog
}

var _ repository.AuditRepository = (*AuditLogs)(nil)

func (r *AuditLogs) Log(_ context.Context, entry *model.AuditLog) error {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = r.s.tick()
	r.rows = append(r.rows, *entry)
	return nil
}

func (r *AuditLogs) List(_ context.Context, action string, pageNum, limit int) ([]model.AuditLog, int64, error) {
	defer r.s.end()
	if err := r.s.begin(); err != nil {
		return nil, 0, err
	}
	out := []model.AuditLog{}
	for i := len(r.rows) - 1; i >= 0; i-- {
		if action == "" || strings.EqualFold(r.rows[i].Action, action) {
			out = append(out, r.rows[i])
		}
	}
	return page(out, pageNum, limit), int64(len(out)), nil
}

// Entries returns every audit entry in insertion order.
func (r *AuditLogs) Entries() []model.AuditLog {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.AuditLog, len(r.rows))
	copy(out, r.rows)
	return out
}

package engine

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// AppliedRule records the rule that set a line's effective rate.
type AppliedRule struct {
	RuleID    string   `json:"rule_id,omitempty"`
	Name      string   `json:"name"`
	Kind      RuleKind `json:"kind"`
	Exemption bool     `json:"exemption"`
}

// LineResult is the per-item breakdown. TaxAmount is unrounded; it is rounded for display only.
type LineResult struct {
	Name          string
	ProductType   string
	Subtotal      decimal.Decimal
	BaseRate      decimal.Decimal
	EffectiveRate decimal.Decimal
	TaxAmount     decimal.Decimal
	AppliedRule   *AppliedRule
}

// CalculationResult is produced fresh per request and never stored by the engine.
// TaxRate is the jurisdiction's nominal base rate; exemptions show up in Lines.
type CalculationResult struct {
	JurisdictionKey         string
	JurisdictionDisplayName string
	Subtotal                decimal.Decimal
	TaxRate                 decimal.Decimal
	TaxAmount               decimal.Decimal
	Total                   decimal.Decimal
	Lines                   []LineResult

	// RateConfigured is false when the key fell back to the Unknown zero rate.
	RateConfigured bool
}

// AppliedRules lists the rule applied to each line, nil where none applied.
func (r *CalculationResult) AppliedRules() []*AppliedRule {
	out := make([]*AppliedRule, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = l.AppliedRule
	}
	return out
}

// Exemptions returns the names of exemption rules applied, one per exempted line.
func (r *CalculationResult) Exemptions() []string {
	var names []string
	for _, l := range r.Lines {
		if l.AppliedRule != nil && l.AppliedRule.Exemption {
			names = append(names, l.AppliedRule.Name)
		}
	}
	return names
}

type lineJSON struct {
	Name          string       `json:"name"`
	ProductType   string       `json:"product_type"`
	Subtotal      string       `json:"subtotal"`
	BaseRate      json.Number  `json:"base_rate"`
	EffectiveRate json.Number  `json:"effective_rate"`
	TaxAmount     string       `json:"tax_amount"`
	AppliedRule   *AppliedRule `json:"applied_rule"`
}

type resultJSON struct {
	JurisdictionKey string      `json:"jurisdiction_key"`
	Jurisdiction    string      `json:"jurisdiction"`
	Subtotal        string      `json:"subtotal"`
	TaxRate         json.Number `json:"tax_rate"`
	TaxAmount       string      `json:"tax_amount"`
	Total           string      `json:"total"`
	Lines           []lineJSON  `json:"lines"`
}

// MarshalJSON renders money as 2-decimal strings and rates as plain numbers.
func (r CalculationResult) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		JurisdictionKey: r.JurisdictionKey,
		Jurisdiction:    r.JurisdictionDisplayName,
		Subtotal:        r.Subtotal.StringFixed(moneyPlaces),
		TaxRate:         json.Number(r.TaxRate.String()),
		TaxAmount:       r.TaxAmount.StringFixed(moneyPlaces),
		Total:           r.Total.StringFixed(moneyPlaces),
		Lines:           make([]lineJSON, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		out.Lines = append(out.Lines, lineJSON{
			Name:          l.Name,
			ProductType:   l.ProductType,
			Subtotal:      l.Subtotal.StringFixed(moneyPlaces),
			BaseRate:      json.Number(l.BaseRate.String()),
			EffectiveRate: json.Number(l.EffectiveRate.String()),
			TaxAmount:     l.TaxAmount.StringFixed(moneyPlaces),
			AppliedRule:   l.AppliedRule,
		})
	}
	return json.Marshal(out)
}

// JurisdictionConfig is everything a calculation needs for one key, fetched in one batch.
type JurisdictionConfig struct {
	Rate  RateEntry
	Rules []Rule
}

// LoadJurisdiction fetches the rate and the rules for key concurrently.
func LoadJurisdiction(ctx context.Context, store ConfigStore, key string) (JurisdictionConfig, error) {
	var cfg JurisdictionConfig
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rate, err := NewRateTable(store).Lookup(gctx, key)
		if err != nil {
			return err
		}
		cfg.Rate = rate
		return nil
	})
	g.Go(func() error {
		rules, err := store.GetRules(gctx, key)
		if err != nil {
			return lookupFailed("get rules", key, err)
		}
		cfg.Rules = rules
		return nil
	})
	if err := g.Wait(); err != nil {
		return JurisdictionConfig{}, err
	}
	return cfg, nil
}

// Calculator computes sales tax for a basket against the current configuration.
type Calculator struct {
	store ConfigStore
}

func NewCalculator(store ConfigStore) *Calculator {
	return &Calculator{store: store}
}

// Calculate either returns a complete result or an error; it never returns partial results.
func (c *Calculator) Calculate(ctx context.Context, items []LineItem, loc CustomerLocation) (*CalculationResult, error) {
	if err := ValidateLineItems(items); err != nil {
		return nil, err
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	key := loc.JurisdictionKey()
	cfg, err := LoadJurisdiction(ctx, c.store, key)
	if err != nil {
		return nil, err
	}
	return Fold(key, cfg, items), nil
}

// Fold evaluates items against an already-loaded jurisdiction configuration.
func Fold(key string, cfg JurisdictionConfig, items []LineItem) *CalculationResult {
	subtotal := decimal.Zero
	tax := decimal.Zero
	lines := make([]LineResult, 0, len(items))

	for _, item := range items {
		itemSubtotal := item.Subtotal()
		base := cfg.Rate.BaseRate
		effective, rule := base, (*Rule)(nil)
		// Rules only transform a configured rate; unknown keys stay at zero.
		if cfg.Rate.Configured {
			effective, rule = resolveRate(cfg.Rules, item, base)
		}
		itemTax := itemSubtotal.Mul(effective).Div(hundred)

		line := LineResult{
			Name:          item.Name,
			ProductType:   item.ProductType,
			Subtotal:      itemSubtotal,
			BaseRate:      base,
			EffectiveRate: effective,
			TaxAmount:     itemTax,
		}
		if rule != nil {
			line.AppliedRule = &AppliedRule{
				RuleID:    rule.ID,
				Name:      rule.Name,
				Kind:      rule.Kind,
				Exemption: base.IsPositive() && effective.IsZero(),
			}
		}
		lines = append(lines, line)

		subtotal = subtotal.Add(itemSubtotal)
		tax = tax.Add(itemTax)
	}

	roundedSubtotal := subtotal.Round(moneyPlaces)
	roundedTax := tax.Round(moneyPlaces)
	return &CalculationResult{
		JurisdictionKey:         key,
		JurisdictionDisplayName: cfg.Rate.DisplayName,
		RateConfigured:          cfg.Rate.Configured,
		Subtotal:                roundedSubtotal,
		TaxRate:                 cfg.Rate.BaseRate,
		TaxAmount:               roundedTax,
		Total:                   roundedSubtotal.Add(roundedTax),
		Lines:                   lines,
	}
}

func resolveRate(rules []Rule, item LineItem, base decimal.Decimal) (decimal.Decimal, *Rule) {
	for i := range rules {
		if rate, ok := evaluate(rules[i], item, base); ok {
			r := rules[i]
			return rate, &r
		}
	}
	return base, nil
}

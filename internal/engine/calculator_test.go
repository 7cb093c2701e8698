package engine

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(name, productType, price string, qty int) LineItem {
	return LineItem{Name: name, ProductType: productType, UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type failingStore struct {
	*MemoryStore
	rateErr  error
	rulesErr error
}

func (s failingStore) GetRate(ctx context.Context, key string) (*RateEntry, error) {
	if s.rateErr != nil {
		return nil, s.rateErr
	}
	return s.MemoryStore.GetRate(ctx, key)
}

func (s failingStore) GetRules(ctx context.Context, key string) ([]Rule, error) {
	if s.rulesErr != nil {
		return nil, s.rulesErr
	}
	return s.MemoryStore.GetRules(ctx, key)
}

func TestCalculateSingleItem(t *testing.T) {
	calc := NewCalculator(DefaultMemoryStore())

	res, err := calc.Calculate(context.Background(),
		[]LineItem{item("Software License", "Digital Software", "100", 1)},
		CustomerLocation{Country: "US", StateOrProvince: "CA"})
	require.NoError(t, err)

	assert.Equal(t, "100.00", res.Subtotal.StringFixed(2))
	assert.Equal(t, "8.50", res.TaxAmount.StringFixed(2))
	assert.Equal(t, "108.50", res.Total.StringFixed(2))
	assert.True(t, res.TaxRate.Equal(dec("8.5")))
	assert.Equal(t, "California", res.JurisdictionDisplayName)
	assert.Equal(t, "US-CA", res.JurisdictionKey)
}

func TestCalculateMultipleItems(t *testing.T) {
	calc := NewCalculator(DefaultMemoryStore())

	res, err := calc.Calculate(context.Background(), []LineItem{
		item("Software License", "Digital Software", "100", 1),
		item("Support Plan", "Subscription Service", "50", 2),
	}, CustomerLocation{Country: "US", StateOrProvince: "NY"})
	require.NoError(t, err)

	assert.Equal(t, "200.00", res.Subtotal.StringFixed(2))
	assert.Equal(t, "17.75", res.TaxAmount.StringFixed(2))
	assert.Equal(t, "217.75", res.Total.StringFixed(2))
	assert.True(t, res.TaxRate.Equal(dec("8.875")))
	assert.Equal(t, "New York", res.JurisdictionDisplayName)
	require.Len(t, res.Lines, 2)
	assert.Nil(t, res.Lines[0].AppliedRule)
	assert.Nil(t, res.Lines[1].AppliedRule)
}

func TestCalculateFractionalPrice(t *testing.T) {
	calc := NewCalculator(DefaultMemoryStore())

	res, err := calc.Calculate(context.Background(),
		[]LineItem{item("Software License", "Digital Software", "99.99", 1)},
		CustomerLocation{Country: "US", StateOrProvince: "TX"})
	require.NoError(t, err)

	assert.Equal(t, "99.99", res.Subtotal.StringFixed(2))
	assert.Equal(t, "6.25", res.TaxAmount.StringFixed(2))
	assert.Equal(t, "106.24", res.Total.StringFixed(2))
}

func TestCalculateDigitalProductsExemption(t *testing.T) {
	calc := NewCalculator(DefaultMemoryStore())

	res, err := calc.Calculate(context.Background(),
		[]LineItem{item("Programming E-book", "E-book", "20", 1)},
		CustomerLocation{Country: "US", StateOrProvince: "CA"})
	require.NoError(t, err)

	assert.True(t, res.TaxAmount.IsZero())
	assert.Equal(t, "20.00", res.Total.StringFixed(2))
	assert.True(t, res.TaxRate.Equal(dec("8.5")), "nominal rate is independent of exemptions")
	require.NotNil(t, res.Lines[0].AppliedRule)
	assert.Equal(t, "Digital Products Exemption", res.Lines[0].AppliedRule.Name)
	assert.True(t, res.Lines[0].AppliedRule.Exemption)
	assert.True(t, res.Lines[0].EffectiveRate.IsZero())
	assert.Equal(t, []string{"Digital Products Exemption"}, res.Exemptions())
}

func TestCalculateSaaSRuleKeepsRate(t *testing.T) {
	calc := NewCalculator(DefaultMemoryStore())

	res, err := calc.Calculate(context.Background(),
		[]LineItem{item("SaaS Platform License", "Digital Software", "299.99", 1)},
		CustomerLocation{Country: "US", StateOrProvince: "CA"})
	require.NoError(t, err)

	assert.True(t, res.Lines[0].TaxAmount.Equal(dec("25.49915")))
	assert.Equal(t, "25.50", res.TaxAmount.StringFixed(2))
	require.NotNil(t, res.Lines[0].AppliedRule)
	assert.Equal(t, "SaaS Rule", res.Lines[0].AppliedRule.Name)
	assert.False(t, res.Lines[0].AppliedRule.Exemption)
	assert.Empty(t, res.Exemptions())
}

func TestCalculateScaledRate(t *testing.T) {
	calc := NewCalculator(DefaultMemoryStore())

	res, err := calc.Calculate(context.Background(),
		[]LineItem{item("Go Fundamentals", "Online Course", "100", 1)},
		CustomerLocation{Country: "US", StateOrProvince: "NY"})
	require.NoError(t, err)

	assert.True(t, res.Lines[0].EffectiveRate.Equal(dec("4.4375")))
	assert.Equal(t, "4.44", res.TaxAmount.StringFixed(2))
	assert.False(t, res.Lines[0].AppliedRule.Exemption)
}

func TestCalculateUKPublications(t *testing.T) {
	calc := NewCalculator(DefaultMemoryStore())
	uk := CustomerLocation{Country: "UK"}

	res, err := calc.Calculate(context.Background(),
		[]LineItem{item("Financial E-book", "E-book", "19.99", 1)}, uk)
	require.NoError(t, err)
	assert.True(t, res.TaxAmount.IsZero())
	assert.Equal(t, "Zero-rated Publications", res.Lines[0].AppliedRule.Name)

	res, err = calc.Calculate(context.Background(),
		[]LineItem{item("Game Strategy E-book", "E-book", "14.99", 1)}, uk)
	require.NoError(t, err)
	assert.True(t, res.Lines[0].TaxAmount.Equal(dec("2.998")))
	assert.Nil(t, res.Lines[0].AppliedRule)
	assert.Equal(t, "United Kingdom", res.JurisdictionDisplayName)
}

func TestCalculateUnknownJurisdiction(t *testing.T) {
	calc := NewCalculator(DefaultMemoryStore())

	res, err := calc.Calculate(context.Background(),
		[]LineItem{item("Software License", "Digital Software", "100", 3)},
		CustomerLocation{Country: "AU", StateOrProvince: "NSW"})
	require.NoError(t, err)

	assert.True(t, res.TaxRate.IsZero())
	assert.Equal(t, "0.00", res.TaxAmount.StringFixed(2))
	assert.Equal(t, "300.00", res.Total.StringFixed(2))
	assert.Equal(t, UnknownJurisdictionName, res.JurisdictionDisplayName)
}

func TestCalculateIgnoresRulesWithoutConfiguredRate(t *testing.T) {
	store := NewMemoryStore()
	store.AddRule(Rule{
		JurisdictionKey: "AU-NSW",
		Name:            "Flat ten",
		Kind:            RuleKindRateOverride,
		Transform:       Transform{Kind: TransformSet, Value: dec("10")},
	})
	calc := NewCalculator(store)

	res, err := calc.Calculate(context.Background(),
		[]LineItem{item("Software License", "Digital Software", "100", 1)},
		CustomerLocation{Country: "AU", StateOrProvince: "NSW"})
	require.NoError(t, err)

	assert.True(t, res.TaxAmount.IsZero())
	assert.Equal(t, "100.00", res.Total.StringFixed(2))
	require.Len(t, res.Lines, 1)
	assert.True(t, res.Lines[0].EffectiveRate.IsZero())
	assert.Nil(t, res.Lines[0].AppliedRule)

	// The same rule applies once the key has a rate, even a zero one.
	store.PutRate(RateEntry{JurisdictionKey: "AU-NSW", BaseRate: decimal.Zero, DisplayName: "New South Wales"})
	res, err = calc.Calculate(context.Background(),
		[]LineItem{item("Software License", "Digital Software", "100", 1)},
		CustomerLocation{Country: "AU", StateOrProvince: "NSW"})
	require.NoError(t, err)
	assert.Equal(t, "10.00", res.TaxAmount.StringFixed(2))
	require.NotNil(t, res.Lines[0].AppliedRule)
}

func TestCalculateValidation(t *testing.T) {
	calc := NewCalculator(DefaultMemoryStore())
	ca := CustomerLocation{Country: "US", StateOrProvince: "CA"}
	ok := []LineItem{item("Test", "Digital", "10", 1)}

	tests := []struct {
		name  string
		items []LineItem
		loc   CustomerLocation
		field string
	}{
		{"no items", nil, ca, "items"},
		{"empty country", ok, CustomerLocation{Country: "", StateOrProvince: ""}, "country"},
		{"blank country", ok, CustomerLocation{Country: "  "}, "country"},
		{"negative price", []LineItem{item("Test", "Digital", "-1", 1)}, ca, "items[0].unit_price"},
		{"zero quantity", []LineItem{item("Test", "Digital", "1", 0)}, ca, "items[0].quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := calc.Calculate(context.Background(), tt.items, tt.loc)
			require.Error(t, err)
			assert.Nil(t, res)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestCalculateLookupFailureIsNotZeroRate(t *testing.T) {
	outage := errors.New("connection refused")
	items := []LineItem{item("Software License", "Digital Software", "100", 1)}
	loc := CustomerLocation{Country: "US", StateOrProvince: "CA"}

	for name, store := range map[string]failingStore{
		"rate":  {MemoryStore: DefaultMemoryStore(), rateErr: outage},
		"rules": {MemoryStore: DefaultMemoryStore(), rulesErr: outage},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := NewCalculator(store).Calculate(context.Background(), items, loc)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrLookupFailed)
			assert.ErrorIs(t, err, outage)
			assert.False(t, IsValidation(err))
		})
	}
}

func TestCalculateAppliesOnlyFirstMatchingRule(t *testing.T) {
	store := DefaultMemoryStore()
	store.ReplaceRules("US-CA", []Rule{
		{JurisdictionKey: "US-CA", Name: "Half Rate", Kind: RuleKindRateOverride,
			Conditions: []Condition{{Field: FieldProductType, Operator: OpEq, Value: "E-book"}},
			Transform:  Transform{Kind: TransformScale, Value: dec("0.5")}},
		{JurisdictionKey: "US-CA", Name: "Full Exemption", Kind: RuleKindExemption,
			Conditions: []Condition{{Field: FieldProductType, Operator: OpEq, Value: "E-book"}}},
	})

	res, err := NewCalculator(store).Calculate(context.Background(),
		[]LineItem{item("Novel", "E-book", "100", 1)},
		CustomerLocation{Country: "US", StateOrProvince: "CA"})
	require.NoError(t, err)

	require.NotNil(t, res.Lines[0].AppliedRule)
	assert.Equal(t, "Half Rate", res.Lines[0].AppliedRule.Name)
	assert.Equal(t, "4.25", res.TaxAmount.StringFixed(2))
	assert.Empty(t, res.Exemptions())
}

func TestCalculateRoundsOnce(t *testing.T) {
	calc := NewCalculator(DefaultMemoryStore())
	items := make([]LineItem, 10)
	for i := range items {
		items[i] = item("Sticker Pack", "Digital Media", "0.05", 1)
	}

	// 0.05 * 6.25% = 0.003125 per line; rounding each line would give 0.00.
	res, err := calc.Calculate(context.Background(), items, CustomerLocation{Country: "US", StateOrProvince: "TX"})
	require.NoError(t, err)
	assert.Equal(t, "0.50", res.Subtotal.StringFixed(2))
	assert.Equal(t, "0.03", res.TaxAmount.StringFixed(2))
}

func TestCalculateTotalsProperty(t *testing.T) {
	calc := NewCalculator(DefaultMemoryStore())
	rng := rand.New(rand.NewSource(42))
	keys := []CustomerLocation{
		{Country: "US", StateOrProvince: "CA"},
		{Country: "US", StateOrProvince: "NY"},
		{Country: "CA", StateOrProvince: "QC"},
		{Country: "UK"},
		{Country: "AU"},
	}
	types := []string{"E-book", "Digital Software", "Online Course", "Digital Media", "Subscription Service"}

	for run := 0; run < 200; run++ {
		n := rng.Intn(6) + 1
		items := make([]LineItem, n)
		for i := range items {
			cents := rng.Int63n(100000)
			items[i] = LineItem{
				Name:        "Item",
				ProductType: types[rng.Intn(len(types))],
				UnitPrice:   decimal.New(cents, -3),
				Quantity:    rng.Intn(5) + 1,
			}
		}
		loc := keys[rng.Intn(len(keys))]

		res, err := calc.Calculate(context.Background(), items, loc)
		require.NoError(t, err)

		assert.True(t, res.Total.Equal(res.Subtotal.Add(res.TaxAmount)), "run %d", run)

		exact := decimal.Zero
		for i, line := range res.Lines {
			want := items[i].Subtotal().Mul(line.EffectiveRate).Div(decimal.NewFromInt(100))
			assert.True(t, line.TaxAmount.Equal(want), "run %d line %d", run, i)
			exact = exact.Add(line.TaxAmount)
		}
		assert.True(t, res.TaxAmount.Equal(exact.Round(2)), "run %d", run)

		again, err := calc.Calculate(context.Background(), items, loc)
		require.NoError(t, err)
		assert.Equal(t, res, again, "run %d not deterministic", run)
	}
}

func TestCalculateSeesConfigurationChanges(t *testing.T) {
	store := DefaultMemoryStore()
	calc := NewCalculator(store)
	items := []LineItem{item("Software License", "Digital Software", "100", 1)}
	loc := CustomerLocation{Country: "US", StateOrProvince: "FL"}

	res, err := calc.Calculate(context.Background(), items, loc)
	require.NoError(t, err)
	assert.Equal(t, "6.00", res.TaxAmount.StringFixed(2))

	store.PutRate(RateEntry{JurisdictionKey: "US-FL", BaseRate: dec("7"), DisplayName: "Florida"})
	res, err = calc.Calculate(context.Background(), items, loc)
	require.NoError(t, err)
	assert.Equal(t, "7.00", res.TaxAmount.StringFixed(2))

	store.DeleteRate("US-FL")
	res, err = calc.Calculate(context.Background(), items, loc)
	require.NoError(t, err)
	assert.Equal(t, UnknownJurisdictionName, res.JurisdictionDisplayName)
}

func TestCalculateConcurrentWithWrites(t *testing.T) {
	store := DefaultMemoryStore()
	calc := NewCalculator(store)
	items := []LineItem{item("Software License", "Digital Software", "100", 1)}
	loc := CustomerLocation{Country: "US", StateOrProvince: "TX"}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				res, err := calc.Calculate(context.Background(), items, loc)
				if !assert.NoError(t, err) {
					return
				}
				got := res.TaxAmount.StringFixed(2)
				assert.Contains(t, []string{"6.25", "7.00"}, got)
			}
		}()
	}
	for i := 0; i < 50; i++ {
		rate := "6.25"
		if i%2 == 0 {
			rate = "7"
		}
		store.PutRate(RateEntry{JurisdictionKey: "US-TX", BaseRate: dec(rate), DisplayName: "Texas"})
	}
	wg.Wait()
}

func TestCalculationResultJSON(t *testing.T) {
	calc := NewCalculator(DefaultMemoryStore())
	res, err := calc.Calculate(context.Background(), []LineItem{
		item("Software License", "Digital Software", "100", 1),
		item("Programming E-book", "E-book", "20", 1),
	}, CustomerLocation{Country: "US", StateOrProvince: "CA"})
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "120.00", body["subtotal"])
	assert.Equal(t, "8.50", body["tax_amount"])
	assert.Equal(t, "128.50", body["total"])
	assert.Equal(t, 8.5, body["tax_rate"])
	assert.Equal(t, "California", body["jurisdiction"])

	lines := body["lines"].([]any)
	require.Len(t, lines, 2)
	assert.Nil(t, lines[0].(map[string]any)["applied_rule"])
	exempt := lines[1].(map[string]any)["applied_rule"].(map[string]any)
	assert.Equal(t, "Digital Products Exemption", exempt["name"])
	assert.Equal(t, true, exempt["exemption"])
}

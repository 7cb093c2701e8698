package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taxcalc/internal/engine"
	"taxcalc/internal/model"
	"taxcalc/internal/repository"
	"taxcalc/internal/repository/repotest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestConfigStoreActiveRate(t *testing.T) {
	ctx := context.Background()
	db := repotest.New()

	end := date("2023-12-31")
	require.NoError(t, db.Rates.Create(ctx, &model.TaxRate{JurisdictionKey: "US-CA", Rate: decimal.RequireFromString("7.25"), EffectiveFrom: date("2020-01-01"), EffectiveTo: &end}))
	require.NoError(t, db.Rates.Create(ctx, &model.TaxRate{JurisdictionKey: "US-CA", Rate: decimal.RequireFromString("8.5"), EffectiveFrom: date("2024-01-01")}))
	require.NoError(t, db.Jurisdictions.Create(ctx, &model.Jurisdiction{Name: "California", Code: "US-CA", Country: "US", StateProvince: "CA", JurisdictionKey: "US-CA"}))

	store := db.ConfigStore().WithClock(func() time.Time { return date("2023-06-01") })
	entry, err := store.GetRate(ctx, "US-CA")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "7.25", entry.BaseRate.String())
	assert.Equal(t, "California", entry.DisplayName)

	store.WithClock(func() time.Time { return date("2024-03-01") })
	entry, err = store.GetRate(ctx, "US-CA")
	require.NoError(t, err)
	assert.Equal(t, "8.5", entry.BaseRate.String())
}

func TestConfigStoreRateActiveThroughItsEndDate(t *testing.T) {
	ctx := context.Background()
	db := repotest.New()

	end := date("2023-12-31")
	require.NoError(t, db.Rates.Create(ctx, &model.TaxRate{JurisdictionKey: "US-CA", Rate: decimal.RequireFromString("7.25"), EffectiveFrom: date("2020-01-01"), EffectiveTo: &end}))

	store := db.ConfigStore().WithClock(func() time.Time { return time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC) })
	entry, err := store.GetRate(ctx, "US-CA")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "7.25", entry.BaseRate.String())

	store.WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC) })
	entry, err = store.GetRate(ctx, "US-CA")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestConfigStoreRateAsOfContextDate(t *testing.T) {
	ctx := context.Background()
	db := repotest.New()

	end := date("2023-12-31")
	require.NoError(t, db.Rates.Create(ctx, &model.TaxRate{JurisdictionKey: "US-CA", Rate: decimal.RequireFromString("7.25"), EffectiveFrom: date("2020-01-01"), EffectiveTo: &end}))
	require.NoError(t, db.Rates.Create(ctx, &model.TaxRate{JurisdictionKey: "US-CA", Rate: decimal.RequireFromString("8.5"), EffectiveFrom: date("2024-01-01")}))

	store := db.ConfigStore().WithClock(func() time.Time { return date("2024-06-01") })
	entry, err := store.GetRate(engine.WithAsOf(ctx, time.Date(2023, 7, 4, 15, 0, 0, 0, time.UTC)), "US-CA")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "7.25", entry.BaseRate.String())
}

func TestCalendarDate(t *testing.T) {
	got := repository.CalendarDate(time.Date(2023, 12, 31, 22, 30, 0, 0, time.FixedZone("UTC-5", -5*3600)))
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestConfigStoreMissingConfigurationIsNil(t *testing.T) {
	ctx := context.Background()
	store := repotest.New().ConfigStore()

	rate, err := store.GetRate(ctx, "ZZ-")
	require.NoError(t, err)
	assert.Nil(t, rate)

	threshold, err := store.GetNexusThreshold(ctx, "ZZ-")
	require.NoError(t, err)
	assert.Nil(t, threshold)

	vat, err := store.GetVATRate(ctx, "ZZ")
	require.NoError(t, err)
	assert.Nil(t, vat)

	rules, err := store.GetRules(ctx, "ZZ-")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestConfigStoreRateWithoutJurisdictionUsesKey(t *testing.T) {
	ctx := context.Background()
	db := repotest.New()
	require.NoError(t, db.Rates.Create(ctx, &model.TaxRate{JurisdictionKey: "CA-NS", Rate: decimal.NewFromInt(15), EffectiveFrom: date("2020-01-01")}))

	entry, err := db.ConfigStore().GetRate(ctx, "CA-NS")
	require.NoError(t, err)
	assert.Equal(t, "CA-NS", entry.DisplayName)
}

func TestConfigStoreRulesInPositionOrder(t *testing.T) {
	ctx := context.Background()
	db := repotest.New()
	require.NoError(t, db.Rules.Create(ctx, &model.TaxRule{JurisdictionKey: "US-CA", Name: "second", Kind: "EXEMPTION", Position: 2}))
	require.NoError(t, db.Rules.Create(ctx, &model.TaxRule{JurisdictionKey: "US-CA", Name: "first", Kind: "EXEMPTION", Position: 1}))
	require.NoError(t, db.Rules.Create(ctx, &model.TaxRule{JurisdictionKey: "US-CA", Name: "also-first", Kind: "EXEMPTION", Position: 1}))
	require.NoError(t, db.Rules.Create(ctx, &model.TaxRule{JurisdictionKey: "US-NY", Name: "other", Kind: "EXEMPTION"}))

	rules, err := db.ConfigStore().GetRules(ctx, "US-CA")
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "first", rules[0].Name)
	assert.Equal(t, "also-first", rules[1].Name)
	assert.Equal(t, "second", rules[2].Name)
	assert.Equal(t, engine.RuleKindExemption, rules[0].Kind)
	assert.NotEmpty(t, rules[0].ID)
}

func TestConfigStoreFailureIsNotAMiss(t *testing.T) {
	ctx := context.Background()
	db := repotest.New()
	db.SetErr(errors.New("connection reset"))

	_, err := db.ConfigStore().GetRate(ctx, "US-CA")
	require.Error(t, err)

	calc := engine.NewCalculator(db.ConfigStore())
	_, err = calc.Calculate(ctx, []engine.LineItem{{Name: "x", ProductType: "Digital Software", UnitPrice: decimal.NewFromInt(1), Quantity: 1}},
		engine.CustomerLocation{Country: "US", StateOrProvince: "CA"})
	assert.ErrorIs(t, err, engine.ErrLookupFailed)
}

func TestConfigStoreWritesVisibleToNextCalculation(t *testing.T) {
	ctx := context.Background()
	db := repotest.New()
	calc := engine.NewCalculator(db.ConfigStore())
	items := []engine.LineItem{{Name: "Course", ProductType: "Online Course", UnitPrice: decimal.NewFromInt(100), Quantity: 1}}
	loc := engine.CustomerLocation{Country: "US", StateOrProvince: "NY"}

	res, err := calc.Calculate(ctx, items, loc)
	require.NoError(t, err)
	assert.Equal(t, engine.UnknownJurisdictionName, res.JurisdictionDisplayName)
	assert.True(t, res.TaxAmount.IsZero())

	require.NoError(t, db.Rates.Create(ctx, &model.TaxRate{JurisdictionKey: "US-NY", Rate: decimal.RequireFromString("8.875"), EffectiveFrom: date("2020-01-01")}))
	require.NoError(t, db.Rules.Create(ctx, &model.TaxRule{
		JurisdictionKey: "US-NY",
		Name:            "Educational Materials Discount",
		Kind:            "RATE_OVERRIDE",
		Conditions:      []engine.Condition{{Field: engine.FieldProductType, Operator: engine.OpEq, Value: "Online Course"}},
		TransformKind:   "SCALE",
		TransformValue:  decimal.RequireFromString("0.5"),
	}))

	res, err = calc.Calculate(ctx, items, loc)
	require.NoError(t, err)
	assert.Equal(t, "4.44", res.TaxAmount.StringFixed(2))
	assert.Equal(t, "104.44", res.Total.StringFixed(2))
}

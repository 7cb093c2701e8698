package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedRatesSplitKeys(t *testing.T) {
	jurisdictions, rates := seedRates()
	require.Len(t, jurisdictions, len(rates))

	byKey := map[string]int{}
	for i, j := range jurisdictions {
		byKey[j.JurisdictionKey] = i
		assert.Equal(t, j.JurisdictionKey, rates[i].JurisdictionKey)
	}

	uk := jurisdictions[byKey["UK-"]]
	assert.Equal(t, "UK", uk.Country)
	assert.Empty(t, uk.StateProvince)
	assert.Equal(t, "UK", uk.Code)

	qc := jurisdictions[byKey["CA-QC"]]
	assert.Equal(t, "CA", qc.Country)
	assert.Equal(t, "QC", qc.StateProvince)
	assert.Equal(t, "Quebec", qc.Name)
	assert.Equal(t, "14.975", rates[byKey["CA-QC"]].Rate.String())
}

func TestSeedRulesKeepDefinitions(t *testing.T) {
	rules := seedRules()
	require.NotEmpty(t, rules)
	for _, r := range rules {
		require.NoError(t, r.ToEngine().Validate(), r.Name)
	}
	assert.Len(t, seedThresholds(), 4)
	assert.Len(t, seedVATRates(), 4)
}

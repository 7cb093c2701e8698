package service

import (
	"context"
	"testing"
	"time"

	"taxcalc/internal/engine"
	"taxcalc/internal/model"
	"taxcalc/internal/repository/repotest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNexusFixture(t *testing.T) (*nexusService, *repotest.Store) {
	t.Helper()
	db := repotest.New()
	ctx := context.Background()
	for _, th := range engine.DefaultNexusThresholds() {
		require.NoError(t, db.Thresholds.Create(ctx, &model.NexusThreshold{
			JurisdictionKey:      th.JurisdictionKey,
			RevenueThreshold:     th.RevenueThreshold,
			TransactionThreshold: th.TransactionThreshold,
		}))
	}
	svc := NewNexusService(db.ConfigStore(), db.Thresholds, db.Transactions).(*nexusService)
	svc.now = func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }
	return svc, db
}

func addSale(t *testing.T, db *repotest.Store, key, subtotal string, date time.Time) {
	t.Helper()
	require.NoError(t, db.Transactions.Create(context.Background(), &model.Transaction{
		TransactionDate: date,
		JurisdictionKey: key,
		Subtotal:        decimal.RequireFromString(subtotal),
	}))
}

func TestNexusCheckWithSuppliedFigures(t *testing.T) {
	svc, _ := newNexusFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     NexusCheckRequest
		nexus   bool
		unknown bool
	}{
		{"revenue at threshold", NexusCheckRequest{JurisdictionKey: "US-CA", Revenue: "500000"}, true, false},
		{"revenue below threshold", NexusCheckRequest{JurisdictionKey: "US-CA", Revenue: "499999.99", TransactionCount: 10000}, false, false},
		{"count threshold", NexusCheckRequest{Country: "US", StateProvince: "FL", Revenue: "10", TransactionCount: 200}, true, false},
		{"count below", NexusCheckRequest{JurisdictionKey: "US-NY", Revenue: "10", TransactionCount: 99}, false, false},
		{"no threshold configured", NexusCheckRequest{JurisdictionKey: "CA-ON", Revenue: "99999999"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := svc.Check(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.nexus, status.HasNexus)
			assert.Equal(t, !tt.unknown, status.Configured)
		})
	}

	_, err := svc.Check(ctx, NexusCheckRequest{Revenue: "1"})
	assert.True(t, engine.IsValidation(err))
	_, err = svc.Check(ctx, NexusCheckRequest{JurisdictionKey: "US-CA", Revenue: "lots"})
	assert.True(t, engine.IsValidation(err))
}

func TestNexusCheckFromRecordedSales(t *testing.T) {
	svc, db := newNexusFixture(t)
	ctx := context.Background()

	addSale(t, db, "US-FL", "60000", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	addSale(t, db, "US-FL", "50000", time.Date(2024, 12, 31, 18, 0, 0, 0, time.UTC))
	addSale(t, db, "US-FL", "90000", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))

	status, err := svc.Check(ctx, NexusCheckRequest{JurisdictionKey: "US-FL"})
	require.NoError(t, err)
	assert.True(t, status.HasNexus)
	assert.Equal(t, "110000", status.Sales.Revenue.String())
	assert.EqualValues(t, 2, status.Sales.TransactionCount)

	status, err = svc.Check(ctx, NexusCheckRequest{JurisdictionKey: "US-FL", From: "2024-01-01", To: "2024-06-30"})
	require.NoError(t, err)
	assert.False(t, status.HasNexus)
}

func TestNexusReport(t *testing.T) {
	svc, db := newNexusFixture(t)
	ctx := context.Background()

	addSale(t, db, "US-CA", "600000", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	addSale(t, db, "CA-ON", "10", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	report, err := svc.Report(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", report.From)
	assert.Equal(t, "2024-12-31", report.To)

	keys := make([]string, 0, len(report.Jurisdictions))
	byKey := map[string]engine.NexusStatus{}
	for _, st := range report.Jurisdictions {
		keys = append(keys, st.JurisdictionKey)
		byKey[st.JurisdictionKey] = st
	}
	assert.Equal(t, []string{"CA-ON", "US-CA", "US-FL", "US-NY", "US-TX"}, keys)
	assert.True(t, byKey["US-CA"].HasNexus)
	assert.False(t, byKey["CA-ON"].Configured)
	assert.False(t, byKey["US-TX"].HasNexus)

	_, err = svc.Report(ctx, "2024-05-01", "2024-01-01")
	assert.True(t, engine.IsValidation(err))
}

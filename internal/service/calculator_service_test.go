package service

import (
	"context"
	"errors"
	"testing"

	"taxcalc/internal/engine"
	"taxcalc/internal/obs"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineItem(name, productType, price string, qty int) engine.LineItem {
	return engine.LineItem{Name: name, ProductType: productType, UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func newTestCalculator(store engine.ConfigStore) (CalculatorService, *obs.Metrics) {
	metrics := obs.NewMetrics("test", prometheus.NewRegistry())
	return NewCalculatorService(store, metrics, zerolog.Nop()), metrics
}

func TestCalculatorServiceCountsExemptions(t *testing.T) {
	svc, metrics := newTestCalculator(engine.DefaultMemoryStore())

	res, err := svc.Calculate(context.Background(), CalculateRequest{
		Items: []engine.LineItem{
			lineItem("Novel", "E-book", "10.00", 2),
			lineItem("Photo Editor", "Digital Software", "50.00", 1),
		},
		CustomerLocation: engine.CustomerLocation{Country: "US", StateOrProvince: "CA"},
	})
	require.NoError(t, err)
	assert.Equal(t, "4.25", res.TaxAmount.StringFixed(2))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CalculationsTotal.WithLabelValues("US-CA", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ExemptionsTotal.WithLabelValues("US-CA", "Digital Products Exemption")))
}

func TestCalculatorServiceRejectsInvalidInput(t *testing.T) {
	svc, metrics := newTestCalculator(engine.DefaultMemoryStore())

	_, err := svc.Calculate(context.Background(), CalculateRequest{
		CustomerLocation: engine.CustomerLocation{Country: "US", StateOrProvince: "CA"},
	})
	require.Error(t, err)
	assert.True(t, engine.IsValidation(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CalculationsTotal.WithLabelValues("unknown", "invalid")))
}

type brokenStore struct{ engine.ConfigStore }

func (brokenStore) GetRate(context.Context, string) (*engine.RateEntry, error) {
	return nil, errors.New("db unavailable")
}

func (brokenStore) GetVATRate(context.Context, string) (*decimal.Decimal, error) {
	return nil, errors.New("db unavailable")
}

func TestCalculatorServiceCountsLookupFailures(t *testing.T) {
	svc, metrics := newTestCalculator(brokenStore{engine.DefaultMemoryStore()})

	_, err := svc.Calculate(context.Background(), CalculateRequest{
		Items:            []engine.LineItem{lineItem("Tool", "Digital Software", "1.00", 1)},
		CustomerLocation: engine.CustomerLocation{Country: "US", StateOrProvince: "TX"},
	})
	require.ErrorIs(t, err, engine.ErrLookupFailed)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LookupFailures.WithLabelValues("get rate")))

	_, err = svc.CalculateVAT(context.Background(), VATRequest{
		Items:            []engine.LineItem{lineItem("Tool", "Digital Software", "1.00", 1)},
		CustomerLocation: engine.CustomerLocation{Country: "UK"},
	})
	require.ErrorIs(t, err, engine.ErrLookupFailed)
}

func TestCalculatorServiceBoundsJurisdictionLabels(t *testing.T) {
	svc, metrics := newTestCalculator(engine.DefaultMemoryStore())
	items := []engine.LineItem{lineItem("Tool", "Digital Software", "1.00", 1)}

	for _, state := range []string{"X1", "X2", "X3"} {
		_, err := svc.Calculate(context.Background(), CalculateRequest{
			Items:            items,
			CustomerLocation: engine.CustomerLocation{Country: "ZZ", StateOrProvince: state},
		})
		require.NoError(t, err)
	}
	_, err := svc.Calculate(context.Background(), CalculateRequest{
		CustomerLocation: engine.CustomerLocation{Country: "QQ", StateOrProvince: "whatever"},
	})
	require.Error(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.CalculationsTotal.WithLabelValues("unknown", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CalculationsTotal.WithLabelValues("unknown", "invalid")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.CalculationsTotal))
}

func TestCalculateVAT(t *testing.T) {
	svc, _ := newTestCalculator(engine.DefaultMemoryStore())
	items := []engine.LineItem{lineItem("Suite", "Digital Software", "49.99", 2)}

	tests := []struct {
		name          string
		loc           engine.CustomerLocation
		rate          string
		vat           string
		reverseCharge bool
	}{
		{"uk consumer", engine.CustomerLocation{Country: "UK"}, "20", "20.00", false},
		{"uk business still charged", engine.CustomerLocation{Country: "UK", VATID: "GB123"}, "20", "20.00", false},
		{"eu business reverse charge", engine.CustomerLocation{Country: "EU-DE", VATID: "DE999"}, "0", "0.00", true},
		{"eu consumer", engine.CustomerLocation{Country: "EU-ES"}, "21", "21.00", false},
		{"unconfigured country", engine.CustomerLocation{Country: "NO"}, "0", "0.00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.CalculateVAT(context.Background(), VATRequest{Items: items, CustomerLocation: tt.loc})
			require.NoError(t, err)
			assert.Equal(t, tt.rate, res.Rate)
			assert.Equal(t, "99.98", res.Subtotal)
			assert.Equal(t, tt.vat, res.VATAmount)
			assert.Equal(t, tt.reverseCharge, res.ReverseCharge)
		})
	}
}

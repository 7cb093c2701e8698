package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"taxcalc/internal/engine"
	"taxcalc/internal/events"
	"taxcalc/internal/model"
	"taxcalc/internal/repository"
	"taxcalc/internal/repository/repotest"
	"taxcalc/pkg/pagination"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransactionFixture() (*transactionService, *repotest.Store, *events.Recorder) {
	db := repotest.New()
	rec := events.NewRecorder()
	calc, _ := newTestCalculator(engine.DefaultMemoryStore())
	svc := NewTransactionService(calc, db.Transactions, db.Audit, rec, zerolog.Nop()).(*transactionService)
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	return svc, db, rec
}

func TestRecordTransactionComputesServerSide(t *testing.T) {
	svc, db, rec := newTransactionFixture()
	ctx := context.Background()

	tx, err := svc.Record(ctx, RecordTransactionRequest{
		CustomerID: " cust-1 ",
		Items: []engine.LineItem{
			lineItem("Video Course", "Online Course", "100.00", 1),
		},
		CustomerLocation: engine.CustomerLocation{Country: "US", StateOrProvince: "NY"},
	}, "alice")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, tx.ID)
	assert.Equal(t, "cust-1", tx.CustomerID)
	assert.Equal(t, "US-NY", tx.JurisdictionKey)
	assert.Equal(t, "New York", tx.JurisdictionName)
	assert.Equal(t, "4.44", tx.TaxAmount.StringFixed(2))
	assert.Equal(t, "104.44", tx.Total.StringFixed(2))
	assert.Equal(t, 2024, tx.TransactionDate.Year())
	require.Len(t, tx.TaxDetails, 1)
	assert.Equal(t, "Educational Materials Discount", tx.TaxDetails[0].RuleName)

	entries := db.Audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionRecordTransaction, entries[0].Action)
	assert.Equal(t, "alice", entries[0].Actor)

	recorded := rec.OfType(events.EventTypeTransactionRecorded)
	require.Len(t, recorded, 1)
	assert.Equal(t, tx.ID.String(), recorded[0].EntityID)
}

func TestRecordTransactionUsesRateOfTransactionDate(t *testing.T) {
	ctx := context.Background()
	db := repotest.New()
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Rates.Create(ctx, &model.TaxRate{JurisdictionKey: "US-WA", Rate: decimal.RequireFromString("6"), EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), EffectiveTo: &end}))
	require.NoError(t, db.Rates.Create(ctx, &model.TaxRate{JurisdictionKey: "US-WA", Rate: decimal.RequireFromString("10"), EffectiveFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}))

	calc, _ := newTestCalculator(db.ConfigStore().WithClock(func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }))
	svc := NewTransactionService(calc, db.Transactions, db.Audit, events.NewRecorder(), zerolog.Nop())
	req := RecordTransactionRequest{
		Items:            []engine.LineItem{lineItem("Plugin", "Digital Software", "100", 1)},
		CustomerLocation: engine.CustomerLocation{Country: "US", StateOrProvince: "WA"},
	}

	req.TransactionDate = "2023-12-31"
	old, err := svc.Record(ctx, req, "")
	require.NoError(t, err)
	assert.Equal(t, "6.00", old.TaxAmount.StringFixed(2))

	req.TransactionDate = "2024-02-01"
	current, err := svc.Record(ctx, req, "")
	require.NoError(t, err)
	assert.Equal(t, "10.00", current.TaxAmount.StringFixed(2))
}

func TestRecordTransactionValidation(t *testing.T) {
	svc, db, rec := newTransactionFixture()

	_, err := svc.Record(context.Background(), RecordTransactionRequest{
		Items:            []engine.LineItem{lineItem("x", "E-book", "1.00", 1)},
		CustomerLocation: engine.CustomerLocation{Country: "US", StateOrProvince: "CA"},
		TransactionDate:  "10/05/2024",
	}, "")
	require.Error(t, err)
	assert.True(t, engine.IsValidation(err))

	_, err = svc.Record(context.Background(), RecordTransactionRequest{
		Items: []engine.LineItem{lineItem("x", "E-book", "1.00", 1)},
	}, "")
	assert.True(t, engine.IsValidation(err))

	_, total, err := db.Transactions.List(context.Background(), repository.TransactionFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rec.Events())
}

func TestRecordTransactionSurvivesPublishFailure(t *testing.T) {
	svc, db, rec := newTransactionFixture()
	rec.Err = errors.New("broker down")

	_, err := svc.Record(context.Background(), RecordTransactionRequest{
		Items:            []engine.LineItem{lineItem("Tool", "Digital Software", "10.00", 1)},
		CustomerLocation: engine.CustomerLocation{Country: "US", StateOrProvince: "TX"},
	}, "")
	require.NoError(t, err)
	assert.Len(t, db.Audit.Entries(), 1)
	assert.Equal(t, SystemActor, db.Audit.Entries()[0].Actor)
}

func TestListTransactionsFilters(t *testing.T) {
	svc, _, _ := newTransactionFixture()
	ctx := context.Background()

	record := func(date, state string) {
		_, err := svc.Record(ctx, RecordTransactionRequest{
			TransactionDate:  date,
			Items:            []engine.LineItem{lineItem("Tool", "Digital Software", "10.00", 1)},
			CustomerLocation: engine.CustomerLocation{Country: "US", StateOrProvince: state},
		}, "")
		require.NoError(t, err)
	}
	record("2024-01-15", "CA")
	record("2024-02-15", "CA")
	record("2024-02-20", "TX")

	txs, total, err := svc.List(ctx, TransactionQuery{JurisdictionKey: "US-CA"}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, time.February, txs[0].TransactionDate.Month())
	assert.True(t, txs[0].TransactionDate.After(txs[1].TransactionDate))

	_, total, err = svc.List(ctx, TransactionQuery{From: "2024-02-01", To: "2024-02-15"}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, _, err = svc.List(ctx, TransactionQuery{From: "Feb 1"}, 1, 10)
	assert.True(t, engine.IsValidation(err))
}

func TestListTransactionsClampsPaging(t *testing.T) {
	svc, _, _ := newTransactionFixture()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := svc.Record(ctx, RecordTransactionRequest{
			Items:            []engine.LineItem{lineItem("Tool", "Digital Software", "10.00", 1)},
			CustomerLocation: engine.CustomerLocation{Country: "US", StateOrProvince: "CA"},
		}, "")
		require.NoError(t, err)
	}

	txs, total, err := svc.List(ctx, TransactionQuery{}, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 25, total)
	assert.Len(t, txs, pagination.DefaultLimit)

	txs, _, err = svc.List(ctx, TransactionQuery{}, -3, 1000)
	require.NoError(t, err)
	assert.Len(t, txs, 25)

	txs, _, err = svc.List(ctx, TransactionQuery{}, 2, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 5)
}

func TestGetAndDeleteTransaction(t *testing.T) {
	svc, db, rec := newTransactionFixture()
	ctx := context.Background()

	_, err := svc.Get(ctx, "not-a-uuid")
	assert.True(t, engine.IsValidation(err))

	_, err = svc.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	tx, err := svc.Record(ctx, RecordTransactionRequest{
		Items:            []engine.LineItem{lineItem("Tool", "Digital Software", "10.00", 1)},
		CustomerLocation: engine.CustomerLocation{Country: "UK"},
	}, "")
	require.NoError(t, err)

	got, err := svc.Get(ctx, tx.ID.String())
	require.NoError(t, err)
	assert.Equal(t, tx.Total.String(), got.Total.String())

	require.NoError(t, svc.Delete(ctx, tx.ID.String(), "bob"))
	_, err = svc.Get(ctx, tx.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, rec.OfType(events.EventTypeTransactionDeleted), 1)
	assert.Equal(t, model.ActionDeleteTransaction, db.Audit.Entries()[1].Action)
}

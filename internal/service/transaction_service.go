package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taxcalc/internal/engine"
	"taxcalc/internal/events"
	"taxcalc/internal/model"
	"taxcalc/internal/repository"
	"taxcalc/pkg/pagination"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// --- DTOs ---

type RecordTransactionRequest struct {
	CustomerID       string                  `json:"customer_id"`
	TransactionDate  string                  `json:"transaction_date"` // YYYY-MM-DD or RFC3339, defaults to now
	Items            []engine.LineItem       `json:"items"`
	CustomerLocation engine.CustomerLocation `json:"customer_location"`
}

type TransactionQuery struct {
	JurisdictionKey string
	CustomerID      string
	From            string // YYYY-MM-DD
	To              string // YYYY-MM-DD, inclusive
}

// --- Interface ---

type TransactionService interface {
	Record(ctx context.Context, req RecordTransactionRequest, actor string) (*model.Transaction, error)
	List(ctx context.Context, q TransactionQuery, page, limit int) ([]model.Transaction, int64, error)
	Get(ctx context.Context, id string) (*model.Transaction, error)
	Delete(ctx context.Context, id string, actor string) error
}

type transactionService struct {
	calc     CalculatorService
	repo     repository.TransactionRepository
	recorder changeRecorder
	now      func() time.Time
}

func NewTransactionService(
	calc CalculatorService,
	repo repository.TransactionRepository,
	audit repository.AuditRepository,
	publisher events.Publisher,
	logger zerolog.Logger,
) TransactionService {
	return &transactionService{
		calc:     calc,
		repo:     repo,
		recorder: newChangeRecorder(audit, publisher, logger.With().Str("component", "transactions").Logger()),
		now:      time.Now,
	}
}

// --- Implementation ---

// Record recomputes the tax server side and stores the result. Client totals are never trusted.
func (s *transactionService) Record(ctx context.Context, req RecordTransactionRequest, actor string) (*model.Transaction, error) {
	date := s.now().UTC()
	if req.TransactionDate != "" {
		parsed, err := parseTimestamp(req.TransactionDate)
		if err != nil {
			return nil, invalid("transaction_date", "expected YYYY-MM-DD or RFC3339")
		}
		date = parsed
	}

	// Back-dated sales are priced with the rate in force on their date
	res, err := s.calc.Calculate(engine.WithAsOf(ctx, date), CalculateRequest{Items: req.Items, CustomerLocation: req.CustomerLocation})
	if err != nil {
		return nil, err
	}

	tx := model.NewTransaction(strings.TrimSpace(req.CustomerID), date, req.CustomerLocation, req.Items, res)
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionRecordTransaction, tx.ID.String(), tx.JurisdictionKey+" "+tx.Total.StringFixed(2), map[string]string{
		"customer_id": tx.CustomerID,
		"total":       tx.Total.StringFixed(2),
	})
	s.recorder.publish(ctx, events.EventTypeTransactionRecorded, tx.ID.String(), tx)

	return tx, nil
}

func (s *transactionService) List(ctx context.Context, q TransactionQuery, page, limit int) ([]model.Transaction, int64, error) {
	filter := repository.TransactionFilter{
		JurisdictionKey: strings.TrimSpace(q.JurisdictionKey),
		CustomerID:      strings.TrimSpace(q.CustomerID),
	}
	if q.From != "" {
		from, err := time.Parse("2006-01-02", q.From)
		if err != nil {
			return nil, 0, invalid("from", "expected YYYY-MM-DD")
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := time.Parse("2006-01-02", q.To)
		if err != nil {
			return nil, 0, invalid("to", "expected YYYY-MM-DD")
		}
		if filter.From != nil && to.Before(*filter.From) {
			return nil, 0, invalid("to", "must not be before from")
		}
		end := endOfDay(to)
		filter.To = &end
	}

	p := pagination.Clamp(page, limit)
	txs, total, err := s.repo.List(ctx, filter, p.Page, p.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	return txs, total, nil
}

func (s *transactionService) Get(ctx context.Context, id string) (*model.Transaction, error) {
	txID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	tx, err := s.repo.FindByID(ctx, txID)
	if err != nil {
		return nil, lookupErr("transaction", err)
	}
	return tx, nil
}

func (s *transactionService) Delete(ctx context.Context, id string, actor string) error {
	tx, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tx.ID); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionDeleteTransaction, tx.ID.String(), tx.JurisdictionKey+" "+tx.Total.StringFixed(2), map[string]string{"deleted_id": id})
	s.recorder.publish(ctx, events.EventTypeTransactionDeleted, tx.ID.String(), map[string]string{"id": id})
	return nil
}

// --- Helpers ---

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, invalid("id", "must be a UUID")
	}
	return parsed, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}

func endOfDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

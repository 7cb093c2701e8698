package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taxcalc/internal/events"
	"taxcalc/internal/model"
	"taxcalc/internal/repository"
	"taxcalc/pkg/pagination"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type TaxRateRequest struct {
	JurisdictionKey string `json:"jurisdiction_key" binding:"required"`
	Rate            string `json:"rate" binding:"required"`           // Percent as decimal string, e.g. "8.875"
	EffectiveFrom   string `json:"effective_from" binding:"required"` // YYYY-MM-DD
	EffectiveTo     string `json:"effective_to"`                      // YYYY-MM-DD, nullable
	Description     string `json:"description"`
}

type TaxRateResponse struct {
	ID              string  `json:"id"`
	JurisdictionKey string  `json:"jurisdiction_key"`
	Rate            string  `json:"rate"`
	EffectiveFrom   string  `json:"effective_from"`
	EffectiveTo     *string `json:"effective_to"`
	Description     string  `json:"description"`
	CreatedAt       string  `json:"created_at"`
}

// --- Interface ---

type TaxRateService interface {
	List(ctx context.Context, key string, page, limit int) ([]TaxRateResponse, int64, error)
	Get(ctx context.Context, id string) (TaxRateResponse, error)
	Create(ctx context.Context, req TaxRateRequest, actor string) (TaxRateResponse, error)
	Update(ctx context.Context, id string, req TaxRateRequest, actor string) (TaxRateResponse, error)
	Delete(ctx context.Context, id string, actor string) error
}

type taxRateService struct {
	repo     repository.TaxRateRepository
	txm      repository.TransactionManager
	recorder changeRecorder
}

func NewTaxRateService(repo repository.TaxRateRepository, txm repository.TransactionManager, audit repository.AuditRepository, publisher events.Publisher, logger zerolog.Logger) TaxRateService {
	return &taxRateService{
		repo:     repo,
		txm:      txm,
		recorder: newChangeRecorder(audit, publisher, logger.With().Str("component", "tax_rates").Logger()),
	}
}

// --- Implementation ---

func (s *taxRateService) List(ctx context.Context, key string, page, limit int) ([]TaxRateResponse, int64, error) {
	p := pagination.Clamp(page, limit)
	rates, total, err := s.repo.List(ctx, strings.TrimSpace(key), p.Page, p.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tax rates: %w", err)
	}

	res := make([]TaxRateResponse, 0, len(rates))
	for _, r := range rates {
		res = append(res, toTaxRateResponse(r))
	}
	return res, total, nil
}

func (s *taxRateService) Get(ctx context.Context, id string) (TaxRateResponse, error) {
	rate, err := s.find(ctx, id)
	if err != nil {
		return TaxRateResponse{}, err
	}
	return toTaxRateResponse(*rate), nil
}

func (s *taxRateService) Create(ctx context.Context, req TaxRateRequest, actor string) (TaxRateResponse, error) {
	key, rate, effectiveFrom, effectiveTo, err := parseTaxRateFields(req)
	if err != nil {
		return TaxRateResponse{}, err
	}

	row := model.TaxRate{
		JurisdictionKey: key,
		Rate:            rate,
		EffectiveFrom:   effectiveFrom,
		EffectiveTo:     effectiveTo,
		Description:     req.Description,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.checkOverlap(txCtx, key, effectiveFrom, effectiveTo, nil); err != nil {
			return err
		}
		return s.repo.Create(txCtx, &row)
	})
	if err != nil {
		return TaxRateResponse{}, wrapWrite("create tax rate", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionCreateTaxRate, row.ID.String(), key+" "+rate.StringFixed(4), req)
	s.recorder.configChanged(ctx, "tax_rate", "created", key)
	return toTaxRateResponse(row), nil
}

func (s *taxRateService) Update(ctx context.Context, id string, req TaxRateRequest, actor string) (TaxRateResponse, error) {
	row, err := s.find(ctx, id)
	if err != nil {
		return TaxRateResponse{}, err
	}

	key, rate, effectiveFrom, effectiveTo, err := parseTaxRateFields(req)
	if err != nil {
		return TaxRateResponse{}, err
	}
	previousKey := row.JurisdictionKey

	row.JurisdictionKey = key
	row.Rate = rate
	row.EffectiveFrom = effectiveFrom
	row.EffectiveTo = effectiveTo
	row.Description = req.Description

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		// Exclude self
		if err := s.checkOverlap(txCtx, key, effectiveFrom, effectiveTo, &row.ID); err != nil {
			return err
		}
		return s.repo.Update(txCtx, row)
	})
	if err != nil {
		return TaxRateResponse{}, wrapWrite("update tax rate", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionUpdateTaxRate, row.ID.String(), key+" "+rate.StringFixed(4), req)
	s.recorder.configChanged(ctx, "tax_rate", "updated", key)
	if previousKey != key {
		s.recorder.configChanged(ctx, "tax_rate", "updated", previousKey)
	}
	return toTaxRateResponse(*row), nil
}

func (s *taxRateService) Delete(ctx context.Context, id string, actor string) error {
	row, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, row.ID); err != nil {
		return fmt.Errorf("failed to delete tax rate: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionDeleteTaxRate, row.ID.String(), row.JurisdictionKey+" "+row.Rate.StringFixed(4), map[string]string{"deleted_id": id})
	s.recorder.configChanged(ctx, "tax_rate", "deleted", row.JurisdictionKey)
	return nil
}

// --- Helpers ---

func (s *taxRateService) find(ctx context.Context, id string) (*model.TaxRate, error) {
	rid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.FindByID(ctx, rid)
	if err != nil {
		return nil, lookupErr("tax rate", err)
	}
	return row, nil
}

func (s *taxRateService) checkOverlap(ctx context.Context, key string, from time.Time, to *time.Time, excludeID *uuid.UUID) error {
	count, err := s.repo.CountOverlapping(ctx, key, from, to, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check overlap: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("a tax rate for '%s' already exists with overlapping effective dates: %w", key, ErrConflict)
	}
	return nil
}

func parseTaxRateFields(req TaxRateRequest) (string, decimal.Decimal, time.Time, *time.Time, error) {
	key := strings.TrimSpace(req.JurisdictionKey)
	if key == "" {
		return "", decimal.Zero, time.Time{}, nil, invalid("jurisdiction_key", "is required")
	}

	rate, err := decimal.NewFromString(strings.TrimSpace(req.Rate))
	if err != nil {
		return "", decimal.Zero, time.Time{}, nil, invalid("rate", "must be a decimal number")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return "", decimal.Zero, time.Time{}, nil, invalid("rate", "must be between 0 and 100")
	}

	effectiveFrom, err := time.Parse("2006-01-02", req.EffectiveFrom)
	if err != nil {
		return "", decimal.Zero, time.Time{}, nil, invalid("effective_from", "expected YYYY-MM-DD")
	}

	var effectiveTo *time.Time
	if req.EffectiveTo != "" {
		t, err := time.Parse("2006-01-02", req.EffectiveTo)
		if err != nil {
			return "", decimal.Zero, time.Time{}, nil, invalid("effective_to", "expected YYYY-MM-DD")
		}
		if t.Before(effectiveFrom) {
			return "", decimal.Zero, time.Time{}, nil, invalid("effective_to", "must not be before effective_from")
		}
		effectiveTo = &t
	}

	return key, rate, effectiveFrom, effectiveTo, nil
}

func toTaxRateResponse(r model.TaxRate) TaxRateResponse {
	resp := TaxRateResponse{
		ID:              r.ID.String(),
		JurisdictionKey: r.JurisdictionKey,
		Rate:            r.Rate.String(),
		EffectiveFrom:   r.EffectiveFrom.Format("2006-01-02"),
		Description:     r.Description,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
	if r.EffectiveTo != nil {
		s := r.EffectiveTo.Format("2006-01-02")
		resp.EffectiveTo = &s
	}
	return resp
}

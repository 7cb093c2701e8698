package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taxcalc/internal/events"
	"taxcalc/internal/model"
	"taxcalc/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type VATRateRequest struct {
	CountryKey string `json:"country_key" binding:"required"` // "UK", "EU-DE"
	Rate       string `json:"rate" binding:"required"`
}

type VATRateService interface {
	List(ctx context.Context) ([]model.VATRate, error)
	Get(ctx context.Context, id string) (*model.VATRate, error)
	Create(ctx context.Context, req VATRateRequest, actor string) (*model.VATRate, error)
	Update(ctx context.Context, id string, req VATRateRequest, actor string) (*model.VATRate, error)
	Delete(ctx context.Context, id string, actor string) error
}

type vatRateService struct {
	repo     repository.VATRateRepository
	recorder changeRecorder
}

func NewVATRateService(repo repository.VATRateRepository, audit repository.AuditRepository, publisher events.Publisher, logger zerolog.Logger) VATRateService {
	return &vatRateService{
		repo:     repo,
		recorder: newChangeRecorder(audit, publisher, logger.With().Str("component", "vat_rates").Logger()),
	}
}

func (s *vatRateService) List(ctx context.Context) ([]model.VATRate, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vat rates: %w", err)
	}
	return items, nil
}

func (s *vatRateService) Get(ctx context.Context, id string) (*model.VATRate, error) {
	vid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	v, err := s.repo.FindByID(ctx, vid)
	if err != nil {
		return nil, lookupErr("vat rate", err)
	}
	return v, nil
}

func (s *vatRateService) Create(ctx context.Context, req VATRateRequest, actor string) (*model.VATRate, error) {
	v := model.VATRate{}
	if err := applyVATRate(&v, req); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, v.CountryKey, ""); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &v); err != nil {
		return nil, fmt.Errorf("failed to create vat rate: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionCreateVATRate, v.ID.String(), v.CountryKey+" "+v.Rate.String(), req)
	s.recorder.configChanged(ctx, "vat_rate", "created", v.CountryKey)
	return &v, nil
}

func (s *vatRateService) Update(ctx context.Context, id string, req VATRateRequest, actor string) (*model.VATRate, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyVATRate(v, req); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, v.CountryKey, v.ID.String()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to update vat rate: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionUpdateVATRate, v.ID.String(), v.CountryKey+" "+v.Rate.String(), req)
	s.recorder.configChanged(ctx, "vat_rate", "updated", v.CountryKey)
	return v, nil
}

func (s *vatRateService) Delete(ctx context.Context, id string, actor string) error {
	v, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, v.ID); err != nil {
		return fmt.Errorf("failed to delete vat rate: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionDeleteVATRate, v.ID.String(), v.CountryKey, map[string]string{"deleted_id": id})
	s.recorder.configChanged(ctx, "vat_rate", "deleted", v.CountryKey)
	return nil
}

func (s *vatRateService) ensureUnique(ctx context.Context, country, selfID string) error {
	existing, err := s.repo.FindByCountry(ctx, country)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check vat rate: %w", err)
	case existing.ID.String() == selfID:
		return nil
	default:
		return fmt.Errorf("vat rate for %q already exists: %w", country, ErrConflict)
	}
}

func applyVATRate(v *model.VATRate, req VATRateRequest) error {
	country := strings.TrimSpace(req.CountryKey)
	if country == "" {
		return invalid("country_key", "is required")
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(req.Rate))
	if err != nil {
		return invalid("rate", "must be a decimal number")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return invalid("rate", "must be between 0 and 100")
	}
	v.CountryKey = country
	v.Rate = rate
	return nil
}

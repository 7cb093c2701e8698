package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taxcalc/internal/engine"
	"taxcalc/internal/events"
	"taxcalc/internal/model"
	"taxcalc/internal/repository"
	"taxcalc/pkg/pagination"

	"github.com/rs/zerolog"
)

type JurisdictionRequest struct {
	Name          string `json:"name" binding:"required"`
	Code          string `json:"code" binding:"required"`
	Country       string `json:"country" binding:"required"`
	StateProvince string `json:"state_province"`
	TaxAuthority  string `json:"tax_authority"`
}

type JurisdictionService interface {
	List(ctx context.Context, page, limit int) ([]model.Jurisdiction, int64, error)
	Get(ctx context.Context, id string) (*model.Jurisdiction, error)
	Create(ctx context.Context, req JurisdictionRequest, actor string) (*model.Jurisdiction, error)
	Update(ctx context.Context, id string, req JurisdictionRequest, actor string) (*model.Jurisdiction, error)
	Delete(ctx context.Context, id string, actor string) error
}

type jurisdictionService struct {
	repo     repository.JurisdictionRepository
	recorder changeRecorder
}

func NewJurisdictionService(repo repository.JurisdictionRepository, audit repository.AuditRepository, publisher events.Publisher, logger zerolog.Logger) JurisdictionService {
	return &jurisdictionService{
		repo:     repo,
		recorder: newChangeRecorder(audit, publisher, logger.With().Str("component", "jurisdictions").Logger()),
	}
}

func (s *jurisdictionService) List(ctx context.Context, page, limit int) ([]model.Jurisdiction, int64, error) {
	p := pagination.Clamp(page, limit)
	items, total, err := s.repo.List(ctx, p.Page, p.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch jurisdictions: %w", err)
	}
	return items, total, nil
}

func (s *jurisdictionService) Get(ctx context.Context, id string) (*model.Jurisdiction, error) {
	jid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	j, err := s.repo.FindByID(ctx, jid)
	if err != nil {
		return nil, lookupErr("jurisdiction", err)
	}
	return j, nil
}

func (s *jurisdictionService) Create(ctx context.Context, req JurisdictionRequest, actor string) (*model.Jurisdiction, error) {
	j := model.Jurisdiction{}
	if err := applyJurisdiction(&j, req); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueKey(ctx, j.JurisdictionKey, ""); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &j); err != nil {
		return nil, fmt.Errorf("failed to create jurisdiction: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionCreateJurisdiction, j.ID.String(), j.Name, req)
	s.recorder.configChanged(ctx, "jurisdiction", "created", j.JurisdictionKey)
	return &j, nil
}

func (s *jurisdictionService) Update(ctx context.Context, id string, req JurisdictionRequest, actor string) (*model.Jurisdiction, error) {
	j, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyJurisdiction(j, req); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueKey(ctx, j.JurisdictionKey, j.ID.String()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, j); err != nil {
		return nil, fmt.Errorf("failed to update jurisdiction: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionUpdateJurisdiction, j.ID.String(), j.Name, req)
	s.recorder.configChanged(ctx, "jurisdiction", "updated", j.JurisdictionKey)
	return j, nil
}

func (s *jurisdictionService) Delete(ctx context.Context, id string, actor string) error {
	j, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, j.ID); err != nil {
		return fmt.Errorf("failed to delete jurisdiction: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionDeleteJurisdiction, j.ID.String(), j.Name, map[string]string{"deleted_id": id})
	s.recorder.configChanged(ctx, "jurisdiction", "deleted", j.JurisdictionKey)
	return nil
}

func (s *jurisdictionService) ensureUniqueKey(ctx context.Context, key, selfID string) error {
	existing, err := s.repo.FindByKey(ctx, key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check jurisdiction key: %w", err)
	case existing.ID.String() == selfID:
		return nil
	default:
		return fmt.Errorf("jurisdiction %q already exists: %w", key, ErrConflict)
	}
}

func applyJurisdiction(j *model.Jurisdiction, req JurisdictionRequest) error {
	name := strings.TrimSpace(req.Name)
	code := strings.TrimSpace(req.Code)
	country := strings.TrimSpace(req.Country)
	switch {
	case name == "":
		return invalid("name", "is required")
	case code == "":
		return invalid("code", "is required")
	case country == "":
		return invalid("country", "is required")
	}

	j.Name = name
	j.Code = code
	j.Country = country
	j.StateProvince = strings.TrimSpace(req.StateProvince)
	j.TaxAuthority = strings.TrimSpace(req.TaxAuthority)
	j.JurisdictionKey = engine.JurisdictionKey(j.Country, j.StateProvince)
	return nil
}

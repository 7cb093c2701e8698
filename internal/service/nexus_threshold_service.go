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

type NexusThresholdRequest struct {
	JurisdictionKey      string `json:"jurisdiction_key" binding:"required"`
	RevenueThreshold     string `json:"revenue_threshold" binding:"required"`
	TransactionThreshold int64  `json:"transaction_threshold"` // 0 disables the count test
}

type NexusThresholdService interface {
	List(ctx context.Context) ([]model.NexusThreshold, error)
	Get(ctx context.Context, id string) (*model.NexusThreshold, error)
	Create(ctx context.Context, req NexusThresholdRequest, actor string) (*model.NexusThreshold, error)
	Update(ctx context.Context, id string, req NexusThresholdRequest, actor string) (*model.NexusThreshold, error)
	Delete(ctx context.Context, id string, actor string) error
}

type nexusThresholdService struct {
	repo     repository.NexusThresholdRepository
	recorder changeRecorder
}

func NewNexusThresholdService(repo repository.NexusThresholdRepository, audit repository.AuditRepository, publisher events.Publisher, logger zerolog.Logger) NexusThresholdService {
	return &nexusThresholdService{
		repo:     repo,
		recorder: newChangeRecorder(audit, publisher, logger.With().Str("component", "nexus_thresholds").Logger()),
	}
}

func (s *nexusThresholdService) List(ctx context.Context) ([]model.NexusThreshold, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nexus thresholds: %w", err)
	}
	return items, nil
}

func (s *nexusThresholdService) Get(ctx context.Context, id string) (*model.NexusThreshold, error) {
	tid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	t, err := s.repo.FindByID(ctx, tid)
	if err != nil {
		return nil, lookupErr("nexus threshold", err)
	}
	return t, nil
}

func (s *nexusThresholdService) Create(ctx context.Context, req NexusThresholdRequest, actor string) (*model.NexusThreshold, error) {
	t := model.NexusThreshold{}
	if err := applyNexusThreshold(&t, req); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, t.JurisdictionKey, ""); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &t); err != nil {
		return nil, fmt.Errorf("failed to create nexus threshold: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionCreateNexusThreshold, t.ID.String(), t.JurisdictionKey, req)
	s.recorder.configChanged(ctx, "nexus_threshold", "created", t.JurisdictionKey)
	return &t, nil
}

func (s *nexusThresholdService) Update(ctx context.Context, id string, req NexusThresholdRequest, actor string) (*model.NexusThreshold, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyNexusThreshold(t, req); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, t.JurisdictionKey, t.ID.String()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update nexus threshold: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionUpdateNexusThreshold, t.ID.String(), t.JurisdictionKey, req)
	s.recorder.configChanged(ctx, "nexus_threshold", "updated", t.JurisdictionKey)
	return t, nil
}

func (s *nexusThresholdService) Delete(ctx context.Context, id string, actor string) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, t.ID); err != nil {
		return fmt.Errorf("failed to delete nexus threshold: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionDeleteNexusThreshold, t.ID.String(), t.JurisdictionKey, map[string]string{"deleted_id": id})
	s.recorder.configChanged(ctx, "nexus_threshold", "deleted", t.JurisdictionKey)
	return nil
}

func (s *nexusThresholdService) ensureUnique(ctx context.Context, key, selfID string) error {
	existing, err := s.repo.FindByKey(ctx, key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check nexus threshold: %w", err)
	case existing.ID.String() == selfID:
		return nil
	default:
		return fmt.Errorf("nexus threshold for %q already exists: %w", key, ErrConflict)
	}
}

func applyNexusThreshold(t *model.NexusThreshold, req NexusThresholdRequest) error {
	key := strings.TrimSpace(req.JurisdictionKey)
	if key == "" {
		return invalid("jurisdiction_key", "is required")
	}
	revenue, err := decimal.NewFromString(strings.TrimSpace(req.RevenueThreshold))
	if err != nil {
		return invalid("revenue_threshold", "must be a decimal number")
	}
	if revenue.IsNegative() {
		return invalid("revenue_threshold", "must not be negative")
	}
	if req.TransactionThreshold < 0 {
		return invalid("transaction_threshold", "must not be negative")
	}

	t.JurisdictionKey = key
	t.RevenueThreshold = revenue
	t.TransactionThreshold = req.TransactionThreshold
	return nil
}

package service

import (
	"context"
	"fmt"
	"strings"

	"taxcalc/internal/engine"
	"taxcalc/internal/events"
	"taxcalc/internal/model"
	"taxcalc/internal/repository"
	"taxcalc/pkg/pagination"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type TaxRuleRequest struct {
	JurisdictionKey string             `json:"jurisdiction_key" binding:"required"`
	Name            string             `json:"name" binding:"required"`
	Description     string             `json:"description"`
	Kind            string             `json:"kind" binding:"required"` // EXEMPTION, RATE_OVERRIDE, THRESHOLD
	Position        int                `json:"position"`
	Conditions      []engine.Condition `json:"conditions"`
	TransformKind   string             `json:"transform_kind"`  // KEEP, ZERO, SCALE, SET
	TransformValue  string             `json:"transform_value"` // Factor for SCALE, percent for SET
	Threshold       string             `json:"threshold"`       // THRESHOLD rules only
}

// --- Interface ---

type TaxRuleService interface {
	List(ctx context.Context, key string, page, limit int) ([]model.TaxRule, int64, error)
	Get(ctx context.Context, id string) (*model.TaxRule, error)
	Create(ctx context.Context, req TaxRuleRequest, actor string) (*model.TaxRule, error)
	Update(ctx context.Context, id string, req TaxRuleRequest, actor string) (*model.TaxRule, error)
	Delete(ctx context.Context, id string, actor string) error
}

type taxRuleService struct {
	repo     repository.TaxRuleRepository
	recorder changeRecorder
}

func NewTaxRuleService(repo repository.TaxRuleRepository, audit repository.AuditRepository, publisher events.Publisher, logger zerolog.Logger) TaxRuleService {
	return &taxRuleService{
		repo:     repo,
		recorder: newChangeRecorder(audit, publisher, logger.With().Str("component", "tax_rules").Logger()),
	}
}

// --- Implementation ---

func (s *taxRuleService) List(ctx context.Context, key string, page, limit int) ([]model.TaxRule, int64, error) {
	p := pagination.Clamp(page, limit)
	rules, total, err := s.repo.List(ctx, strings.TrimSpace(key), p.Page, p.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tax rules: %w", err)
	}
	return rules, total, nil
}

func (s *taxRuleService) Get(ctx context.Context, id string) (*model.TaxRule, error) {
	rid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	rule, err := s.repo.FindByID(ctx, rid)
	if err != nil {
		return nil, lookupErr("tax rule", err)
	}
	return rule, nil
}

func (s *taxRuleService) Create(ctx context.Context, req TaxRuleRequest, actor string) (*model.TaxRule, error) {
	rule := model.TaxRule{}
	if err := applyTaxRule(&rule, req); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &rule); err != nil {
		return nil, fmt.Errorf("failed to create tax rule: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionCreateTaxRule, rule.ID.String(), rule.JurisdictionKey+" "+rule.Name, req)
	s.recorder.configChanged(ctx, "tax_rule", "created", rule.JurisdictionKey)
	return &rule, nil
}

func (s *taxRuleService) Update(ctx context.Context, id string, req TaxRuleRequest, actor string) (*model.TaxRule, error) {
	rule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previousKey := rule.JurisdictionKey
	if err := applyTaxRule(rule, req); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to update tax rule: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionUpdateTaxRule, rule.ID.String(), rule.JurisdictionKey+" "+rule.Name, req)
	s.recorder.configChanged(ctx, "tax_rule", "updated", rule.JurisdictionKey)
	if previousKey != rule.JurisdictionKey {
		s.recorder.configChanged(ctx, "tax_rule", "updated", previousKey)
	}
	return rule, nil
}

func (s *taxRuleService) Delete(ctx context.Context, id string, actor string) error {
	rule, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, rule.ID); err != nil {
		return fmt.Errorf("failed to delete tax rule: %w", err)
	}

	s.recorder.writeAuditLog(ctx, actor, model.ActionDeleteTaxRule, rule.ID.String(), rule.JurisdictionKey+" "+rule.Name, map[string]string{"deleted_id": id})
	s.recorder.configChanged(ctx, "tax_rule", "deleted", rule.JurisdictionKey)
	return nil
}

// applyTaxRule validates req through the engine before touching the row.
func applyTaxRule(row *model.TaxRule, req TaxRuleRequest) error {
	transformValue, err := optionalDecimal(req.TransformValue)
	if err != nil {
		return invalid("transform_value", "must be a decimal number")
	}
	threshold, err := optionalDecimal(req.Threshold)
	if err != nil {
		return invalid("threshold", "must be a decimal number")
	}

	candidate := engine.Rule{
		JurisdictionKey: strings.TrimSpace(req.JurisdictionKey),
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		Kind:            engine.RuleKind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		Position:        req.Position,
		Conditions:      req.Conditions,
		Transform: engine.Transform{
			Kind:  engine.TransformKind(strings.ToUpper(strings.TrimSpace(req.TransformKind))),
			Value: transformValue,
		},
		Threshold: threshold,
	}
	if err := candidate.Validate(); err != nil {
		return err
	}

	row.JurisdictionKey = candidate.JurisdictionKey
	row.Name = candidate.Name
	row.Description = candidate.Description
	row.Kind = string(candidate.Kind)
	row.Position = candidate.Position
	row.Conditions = candidate.Conditions
	row.TransformKind = string(candidate.Transform.Kind)
	row.TransformValue = candidate.Transform.Value
	row.Threshold = candidate.Threshold
	return nil
}

func optionalDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

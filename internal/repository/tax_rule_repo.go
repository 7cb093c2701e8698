package repository

import (
	"context"

	"taxcalc/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaxRuleRepository interface {
	Create(ctx context.Context, rule *model.TaxRule) error
	Update(ctx context.Context, rule *model.TaxRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRule, error)
	List(ctx context.Context, key string, page, limit int) ([]model.TaxRule, int64, error)
	FindByJurisdiction(ctx context.Context, key string) ([]model.TaxRule, error)
}

type taxRuleRepository struct {
	db *gorm.DB
}

func NewTaxRuleRepository(db *gorm.DB) TaxRuleRepository {
	return &taxRuleRepository{db: db}
}

func (r *taxRuleRepository) Create(ctx context.Context, rule *model.TaxRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *taxRuleRepository) Update(ctx context.Context, rule *model.TaxRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *taxRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.TaxRule{}).Error
}

func (r *taxRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRule, error) {
	var rule model.TaxRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rule, nil
}

func (r *taxRuleRepository) List(ctx context.Context, key string, page, limit int) ([]model.TaxRule, int64, error) {
	var rules []model.TaxRule
	var total int64

	query := GetDB(ctx, r.db).Model(&model.TaxRule{})
	if key != "" {
		query = query.Where("jurisdiction_key = ?", key)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("jurisdiction_key, position, created_at").Offset(offset(page, limit)).Limit(limit).Find(&rules).Error; err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

// FindByJurisdiction returns the rules of key in evaluation order.
func (r *taxRuleRepository) FindByJurisdiction(ctx context.Context, key string) ([]model.TaxRule, error) {
	var rules []model.TaxRule
	if err := GetDB(ctx, r.db).
		Where("jurisdiction_key = ?", key).
		Order("position, created_at, id").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

package repository

import (
	"context"
	"time"

	"taxcalc/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaxRateRepository interface {
	Create(ctx context.Context, rate *model.TaxRate) error
	Update(ctx context.Context, rate *model.TaxRate) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRate, error)
	List(ctx context.Context, key string, page, limit int) ([]model.TaxRate, int64, error)
	FindActive(ctx context.Context, key string, targetDate time.Time) (*model.TaxRate, error)
	CountOverlapping(ctx context.Context, key string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error)
}

type taxRateRepository struct {
	db *gorm.DB
}

func NewTaxRateRepository(db *gorm.DB) TaxRateRepository {
	return &taxRateRepository{db: db}
}

func (r *taxRateRepository) Create(ctx context.Context, rate *model.TaxRate) error {
	return GetDB(ctx, r.db).Create(rate).Error
}

func (r *taxRateRepository) Update(ctx context.Context, rate *model.TaxRate) error {
	return GetDB(ctx, r.db).Save(rate).Error
}

func (r *taxRateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.TaxRate{}).Error
}

func (r *taxRateRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRate, error) {
	var rate model.TaxRate
	if err := GetDB(ctx, r.db).First(&rate, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rate, nil
}

func (r *taxRateRepository) List(ctx context.Context, key string, page, limit int) ([]model.TaxRate, int64, error) {
	var rates []model.TaxRate
	var total int64

	query := GetDB(ctx, r.db).Model(&model.TaxRate{})
	if key != "" {
		query = query.Where("jurisdiction_key = ?", key)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("effective_from desc").Offset(offset(page, limit)).Limit(limit).Find(&rates).Error; err != nil {
		return nil, 0, err
	}
	return rates, total, nil
}

func (r *taxRateRepository) FindActive(ctx context.Context, key string, targetDate time.Time) (*model.TaxRate, error) {
	var rate model.TaxRate
	day := CalendarDate(targetDate)
	if err := GetDB(ctx, r.db).
		Where("jurisdiction_key = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", key, day, day).
		Order("effective_from DESC").
		First(&rate).Error; err != nil {
		return nil, translate(err)
	}
	return &rate, nil
}

func (r *taxRateRepository) CountOverlapping(ctx context.Context, key string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error) {
	var count int64
	query := GetDB(ctx, r.db).Model(&model.TaxRate{}).Where("jurisdiction_key = ?", key)

	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	if to != nil {
		// New rate has end date: overlap if existing.from <= new.to AND (existing.to IS NULL OR existing.to >= new.from)
		query = query.Where("effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", *to, from)
	} else {
		// New rate has no end date: overlap if (existing.to IS NULL OR existing.to >= new.from)
		query = query.Where("(effective_to IS NULL OR effective_to >= ?)", from)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

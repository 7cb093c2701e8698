package repository

import (
	"context"

	"taxcalc/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VATRateRepository interface {
	Create(ctx context.Context, rate *model.VATRate) error
	Update(ctx context.Context, rate *model.VATRate) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.VATRate, error)
	FindByCountry(ctx context.Context, countryKey string) (*model.VATRate, error)
	ListAll(ctx context.Context) ([]model.VATRate, error)
}

type vatRateRepository struct {
	db *gorm.DB
}

func NewVATRateRepository(db *gorm.DB) VATRateRepository {
	return &vatRateRepository{db: db}
}

func (r *vatRateRepository) Create(ctx context.Context, rate *model.VATRate) error {
	return GetDB(ctx, r.db).Create(rate).Error
}

func (r *vatRateRepository) Update(ctx context.Context, rate *model.VATRate) error {
	return GetDB(ctx, r.db).Save(rate).Error
}

func (r *vatRateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.VATRate{}).Error
}

func (r *vatRateRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.VATRate, error) {
	var rate model.VATRate
	if err := GetDB(ctx, r.db).First(&rate, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rate, nil
}

func (r *vatRateRepository) FindByCountry(ctx context.Context, countryKey string) (*model.VATRate, error) {
	var rate model.VATRate
	if err := GetDB(ctx, r.db).First(&rate, "country_key = ?", countryKey).Error; err != nil {
		return nil, translate(err)
	}
	return &rate, nil
}

func (r *vatRateRepository) ListAll(ctx context.Context) ([]model.VATRate, error) {
	var items []model.VATRate
	if err := GetDB(ctx, r.db).Order("country_key").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

package repository

import (
	"context"

	"taxcalc/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NexusThresholdRepository interface {
	Create(ctx context.Context, t *model.NexusThreshold) error
	Update(ctx context.Context, t *model.NexusThreshold) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.NexusThreshold, error)
	FindByKey(ctx context.Context, key string) (*model.NexusThreshold, error)
	ListAll(ctx context.Context) ([]model.NexusThreshold, error)
}

type nexusThresholdRepository struct {
	db *gorm.DB
}

func NewNexusThresholdRepository(db *gorm.DB) NexusThresholdRepository {
	return &nexusThresholdRepository{db: db}
}

func (r *nexusThresholdRepository) Create(ctx context.Context, t *model.NexusThreshold) error {
	return GetDB(ctx, r.db).Create(t).Error
}

func (r *nexusThresholdRepository) Update(ctx context.Context, t *model.NexusThreshold) error {
	return GetDB(ctx, r.db).Save(t).Error
}

func (r *nexusThresholdRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.NexusThreshold{}).Error
}

func (r *nexusThresholdRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.NexusThreshold, error) {
	var t model.NexusThreshold
	if err := GetDB(ctx, r.db).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *nexusThresholdRepository) FindByKey(ctx context.Context, key string) (*model.NexusThreshold, error) {
	var t model.NexusThreshold
	if err := GetDB(ctx, r.db).First(&t, "jurisdiction_key = ?", key).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *nexusThresholdRepository) ListAll(ctx context.Context) ([]model.NexusThreshold, error) {
	var items []model.NexusThreshold
	if err := GetDB(ctx, r.db).Order("jurisdiction_key").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

package repository

import (
	"context"

	"taxcalc/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JurisdictionRepository interface {
	Create(ctx context.Context, j *model.Jurisdiction) error
	Update(ctx context.Context, j *model.Jurisdiction) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Jurisdiction, error)
	FindByKey(ctx context.Context, key string) (*model.Jurisdiction, error)
	List(ctx context.Context, page, limit int) ([]model.Jurisdiction, int64, error)
}

type jurisdictionRepository struct {
	db *gorm.DB
}

func NewJurisdictionRepository(db *gorm.DB) JurisdictionRepository {
	return &jurisdictionRepository{db: db}
}

func (r *jurisdictionRepository) Create(ctx context.Context, j *model.Jurisdiction) error {
	return GetDB(ctx, r.db).Create(j).Error
}

func (r *jurisdictionRepository) Update(ctx context.Context, j *model.Jurisdiction) error {
	return GetDB(ctx, r.db).Save(j).Error
}

func (r *jurisdictionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Jurisdiction{}).Error
}

func (r *jurisdictionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Jurisdiction, error) {
	var j model.Jurisdiction
	if err := GetDB(ctx, r.db).First(&j, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &j, nil
}

func (r *jurisdictionRepository) FindByKey(ctx context.Context, key string) (*model.Jurisdiction, error) {
	var j model.Jurisdiction
	if err := GetDB(ctx, r.db).First(&j, "jurisdiction_key = ?", key).Error; err != nil {
		return nil, translate(err)
	}
	return &j, nil
}

func (r *jurisdictionRepository) List(ctx context.Context, page, limit int) ([]model.Jurisdiction, int64, error) {
	var items []model.Jurisdiction
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Jurisdiction{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("name").Offset(offset(page, limit)).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

package repository

import (
	"context"

	"github.com/fabworks/mfg-core/internal/model/entity"
	"gorm.io/gorm"
)

type BOMRepository struct {
	db *gorm.DB
}

func NewBOMRepository(db *gorm.DB) *BOMRepository {
	return &BOMRepository{db: db}
}

// FindByID 读取BOM及其组件/工序
func (r *BOMRepository) FindByID(ctx context.Context, id string) (*entity.BOM, error) {
	var bom entity.BOM
	err := r.db.WithContext(ctx).
		Preload("Components").
		Preload("Components.Component").
		Preload("Operations").
		Where("id = ?", id).
		First(&bom).Error
	if err != nil {
		return nil, err
	}
	return &bom, nil
}

func (r *BOMRepository) List(ctx context.Context) ([]entity.BOM, error) {
	var boms []entity.BOM
	err := r.db.WithContext(ctx).Preload("Product").Order("name ASC").Find(&boms).Error
	return boms, err
}

type WorkCenterRepository struct {
	db *gorm.DB
}

func NewWorkCenterRepository(db *gorm.DB) *WorkCenterRepository {
	return &WorkCenterRepository{db: db}
}

func (r *WorkCenterRepository) FindByID(ctx context.Context, id string) (*entity.WorkCenter, error) {
	var wc entity.WorkCenter
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&wc).Error
	if err != nil {
		return nil, err
	}
	return &wc, nil
}

func (r *WorkCenterRepository) List(ctx context.Context) ([]entity.WorkCenter, error) {
	var centers []entity.WorkCenter
	err := r.db.WithContext(ctx).Order("name ASC").Find(&centers).Error
	return centers, err
}

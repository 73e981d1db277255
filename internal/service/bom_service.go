package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fabworks/mfg-core/internal/repository"
	"gorm.io/gorm"
)

// BOMService BOM解析：把BOM按产量展开为组件需求与工序
type BOMService struct {
	bomRepo *repository.BOMRepository
}

func NewBOMService(bomRepo *repository.BOMRepository) *BOMService {
	return &BOMService{bomRepo: bomRepo}
}

// ComponentRequirement 展开后的组件需求
type ComponentRequirement struct {
	ProductID string `json:"product_id"`
	Required  int    `json:"required"` // quantity_required_per_unit × quantity_to_produce
}

// OperationSpec 展开后的工序
type OperationSpec struct {
	Name            string `json:"name"`
	WorkCenterID    string `json:"work_center_id"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Requirements BOM解析结果
// A BOM with zero components is valid: Components is empty and callers must
// treat availability as Not Applicable rather than Available.
type Requirements struct {
	Components []ComponentRequirement `json:"components"`
	Operations []OperationSpec        `json:"operations"`
}

// Resolve 按产量展开BOM
func (s *BOMService) Resolve(ctx context.Context, bomID string, quantityToProduce int) (*Requirements, error) {
	bom, err := s.bomRepo.FindByID(ctx, bomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("bom %s: %w", bomID, ErrNotFound)
		}
		return nil, fmt.Errorf("load bom: %w", err)
	}

	req := &Requirements{
		Components: make([]ComponentRequirement, 0, len(bom.Components)),
		Operations: make([]OperationSpec, 0, len(bom.Operations)),
	}
	for _, comp := range bom.Components {
		req.Components = append(req.Components, ComponentRequirement{
			ProductID: comp.ComponentProductID,
			Required:  comp.QuantityRequired * quantityToProduce,
		})
	}
	for _, op := range bom.Operations {
		req.Operations = append(req.Operations, OperationSpec{
			Name:            op.Name,
			WorkCenterID:    op.WorkCenterID,
			DurationMinutes: op.DurationMinutes,
		})
	}
	return req, nil
}

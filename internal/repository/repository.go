package repository

import "gorm.io/gorm"

// Repositories 仓库集合
type Repositories struct {
	Product    *ProductRepository
	BOM        *BOMRepository
	Order      *OrderRepository
	WorkCenter *WorkCenterRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Product:    NewProductRepository(db),
		BOM:        NewBOMRepository(db),
		Order:      NewOrderRepository(db),
		WorkCenter: NewWorkCenterRepository(db),
	}
}

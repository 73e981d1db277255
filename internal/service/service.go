package service

import (
	"github.com/fabworks/mfg-core/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	BOM          *BOMService
	Availability *AvailabilityService
	Inventory    *InventoryService
	Order        *OrderService
	WorkOrder    *WorkOrderService
}

func NewServices(repos *repository.Repositories, rdb *redis.Client, logger *zap.Logger) *Services {
	bomSvc := NewBOMService(repos.BOM)
	availability := NewAvailabilityService(repos.Product, repos.BOM, rdb)
	inventory := NewInventoryService(repos.Product, availability, logger)
	orders := NewOrderService(repos.Order, repos.Product, bomSvc, inventory, availability, logger)
	workOrders := NewWorkOrderService(repos.Order, orders)

	return &Services{
		BOM:          bomSvc,
		Availability: availability,
		Inventory:    inventory,
		Order:        orders,
		WorkOrder:    workOrders,
	}
}

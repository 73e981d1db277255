package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fabworks/mfg-core/internal/model/entity"
	"github.com/fabworks/mfg-core/internal/repository"
	"github.com/redis/go-redis/v9"
)

// ComponentStatus 组件可用性标注
const (
	ComponentStatusAvailable    = "Available"
	ComponentStatusNotAvailable = "Not Available"
	ComponentStatusNA           = "N/A"
)

const (
	stockSnapshotKey = "stock:snapshot"
	stockSnapshotTTL = 5 * time.Second
)

// AvailabilityService 组件可用性评估（只读、纯展示用途）
// The whole batch is evaluated against one point-in-time stock snapshot so a
// list view never mixes two stock states. Advisory only: produce re-derives
// requirements itself before committing.
type AvailabilityService struct {
	productRepo *repository.ProductRepository
	bomRepo     *repository.BOMRepository
	rdb         *redis.Client // optional, nil disables caching
}

func NewAvailabilityService(productRepo *repository.ProductRepository, bomRepo *repository.BOMRepository, rdb *redis.Client) *AvailabilityService {
	return &AvailabilityService{productRepo: productRepo, bomRepo: bomRepo, rdb: rdb}
}

// Snapshot 取得全量库存快照，短TTL缓存
func (s *AvailabilityService) Snapshot(ctx context.Context) (map[string]int, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, stockSnapshotKey).Bytes(); err == nil {
			var cached map[string]int
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	snapshot, err := s.productRepo.StockSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(snapshot); err == nil {
			s.rdb.Set(ctx, stockSnapshotKey, raw, stockSnapshotTTL)
		}
	}
	return snapshot, nil
}

// InvalidateSnapshot 库存写入后使缓存失效
func (s *AvailabilityService) InvalidateSnapshot(ctx context.Context) {
	if s.rdb != nil {
		s.rdb.Del(ctx, stockSnapshotKey)
	}
}

// StatusFor 对单个订单计算组件可用性
// No components → N/A. Otherwise Available only when every component's
// on-hand covers its requirement; short-circuits on the first shortfall.
func (s *AvailabilityService) StatusFor(order *entity.ManufacturingOrder, components []entity.BOMComponent, snapshot map[string]int) string {
	if order.BOMID == nil || len(components) == 0 {
		return ComponentStatusNA
	}
	for _, comp := range components {
		required := comp.QuantityRequired * order.QuantityToProduce
		if snapshot[comp.ComponentProductID] < required {
			return ComponentStatusNotAvailable
		}
	}
	return ComponentStatusAvailable
}

// AnnotatedOrder 带可用性标注的订单列表行
type AnnotatedOrder struct {
	entity.ManufacturingOrder
	ComponentStatus string `json:"component_status"`
}

// Annotate 对一批订单做可用性标注
func (s *AvailabilityService) Annotate(ctx context.Context, orders []entity.ManufacturingOrder) ([]AnnotatedOrder, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	// BOM components fetched once per distinct BOM in the batch.
	componentsByBOM := make(map[string][]entity.BOMComponent)
	annotated := make([]AnnotatedOrder, 0, len(orders))
	for i := range orders {
		order := &orders[i]
		var components []entity.BOMComponent
		if order.BOMID != nil {
			var ok bool
			components, ok = componentsByBOM[*order.BOMID]
			if !ok {
				bom, err := s.bomRepo.FindByID(ctx, *order.BOMID)
				if err == nil {
					components = bom.Components
				}
				componentsByBOM[*order.BOMID] = components
			}
		}
		annotated = append(annotated, AnnotatedOrder{
			ManufacturingOrder: *order,
			ComponentStatus:    s.StatusFor(order, components, snapshot),
		})
	}
	return annotated, nil
}

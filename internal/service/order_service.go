package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fabworks/mfg-core/internal/model/entity"
	"github.com/fabworks/mfg-core/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderService 制造订单生命周期控制器
// Every state-changing operation runs as one transaction: lock the MO row,
// decide, write status + history. Produce additionally locks every product
// row it adjusts before mutating any of them.
type OrderService struct {
	orderRepo    *repository.OrderRepository
	productRepo  *repository.ProductRepository
	bomSvc       *BOMService
	invSvc       *InventoryService
	availability *AvailabilityService
	logger       *zap.Logger
	now          func() time.Time
}

func NewOrderService(
	orderRepo *repository.OrderRepository,
	productRepo *repository.ProductRepository,
	bomSvc *BOMService,
	invSvc *InventoryService,
	availability *AvailabilityService,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		bomSvc:       bomSvc,
		invSvc:       invSvc,
		availability: availability,
		logger:       logger,
		now:          time.Now,
	}
}

// SetClock 测试用时钟注入
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *OrderService) appendHistoryTx(tx *gorm.DB, moID, status string) error {
	return s.orderRepo.AppendHistoryTx(tx, &entity.MOStatusHistory{
		ID:        uuid.New().String(),
		MOID:      moID,
		Status:    status,
		Timestamp: s.now(),
	})
}

type CreateOrderRequest struct {
	ProductID         string     `json:"product_id" binding:"required"`
	BOMID             *string    `json:"bom_id"`
	QuantityToProduce int        `json:"quantity_to_produce" binding:"required,gt=0"`
	ScheduleStartDate *time.Time `json:"schedule_start_date"`
	AssigneeID        *string    `json:"assignee_id"`
}

// Create 创建订单：Draft状态，按BOM工序生成工单，记一条 Draft 历史
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest, actorID string) (*entity.ManufacturingOrder, error) {
	if _, err := s.productRepo.FindByID(ctx, req.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", req.ProductID, ErrNotFound)
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	var operations []OperationSpec
	if req.BOMID != nil && *req.BOMID != "" {
		requirements, err := s.bomSvc.Resolve(ctx, *req.BOMID, req.QuantityToProduce)
		if err != nil {
			return nil, err
		}
		operations = requirements.Operations
	} else {
		req.BOMID = nil
	}

	now := s.now()
	mo := &entity.ManufacturingOrder{
		ID:                uuid.New().String(),
		Code:              fmt.Sprintf("MO-%s%04d", now.Format("20060102"), now.UnixNano()%10000),
		ProductID:         req.ProductID,
		BOMID:             req.BOMID,
		QuantityToProduce: req.QuantityToProduce,
		Status:            entity.MOStatusDraft,
		ScheduleStartDate: req.ScheduleStartDate,
		AssigneeID:        req.AssigneeID,
		CreatedBy:         actorID,
	}
	for _, op := range operations {
		mo.WorkOrders = append(mo.WorkOrders, entity.WorkOrder{
			ID:              uuid.New().String(),
			MOID:            mo.ID,
			OperationName:   op.Name,
			WorkCenterID:    op.WorkCenterID,
			Status:          entity.WOStatusToDo,
			DurationMinutes: op.DurationMinutes,
		})
	}

	err := s.orderRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.CreateTx(tx, mo); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return s.appendHistoryTx(tx, mo.ID, entity.MOStatusDraft)
	})
	if err != nil {
		return nil, err
	}
	return mo, nil
}

// Confirm Draft→Confirmed。对已 Confirmed 的订单重复确认是 no-op。
func (s *OrderService) Confirm(ctx context.Context, moID string) error {
	return s.orderRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mo, err := s.lockOrder(tx, moID)
		if err != nil {
			return err
		}
		if mo.Status == entity.MOStatusConfirmed {
			return nil
		}
		if mo.Status != entity.MOStatusDraft {
			return fmt.Errorf("confirm from %q: %w", mo.Status, ErrInvalidState)
		}
		if err := s.orderRepo.UpdatesTx(tx, moID, map[string]interface{}{
			"status": entity.MOStatusConfirmed,
		}); err != nil {
			return err
		}
		return s.appendHistoryTx(tx, moID, entity.MOStatusConfirmed)
	})
}

// Start Confirmed→In Progress，start_time 仅在未设置时写入
func (s *OrderService) Start(ctx context.Context, moID string) error {
	return s.orderRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mo, err := s.lockOrder(tx, moID)
		if err != nil {
			return err
		}
		if mo.Status != entity.MOStatusConfirmed {
			return fmt.Errorf("start from %q: %w", mo.Status, ErrInvalidState)
		}
		return s.markInProgressTx(tx, mo)
	})
}

// markInProgressTx 共享的 In Progress 写入（显式 start 与工单级联共用）
func (s *OrderService) markInProgressTx(tx *gorm.DB, mo *entity.ManufacturingOrder) error {
	updates := map[string]interface{}{"status": entity.MOStatusInProgress}
	if mo.StartTime == nil {
		updates["start_time"] = s.now()
	}
	if err := s.orderRepo.UpdatesTx(tx, mo.ID, updates); err != nil {
		return err
	}
	return s.appendHistoryTx(tx, mo.ID, entity.MOStatusInProgress)
}

// StartFromWorkOrderTx 命名级联规则：首个工单计时启动时，仍为 Confirmed 的
// 订单被推进到 In Progress。其他状态下为 no-op。
func (s *OrderService) StartFromWorkOrderTx(tx *gorm.DB, moID string) error {
	mo, err := s.lockOrder(tx, moID)
	if err != nil {
		return err
	}
	if mo.Status != entity.MOStatusConfirmed {
		return nil
	}
	return s.markInProgressTx(tx, mo)
}

// CloseWhenAllDoneTx 命名级联规则：最后一个工单完成时，In Progress 的订单
// 被推进到 To Close。重复触发是 no-op（恰好推进一次）。
func (s *OrderService) CloseWhenAllDoneTx(tx *gorm.DB, moID string) error {
	mo, err := s.lockOrder(tx, moID)
	if err != nil {
		return err
	}
	if mo.Status != entity.MOStatusInProgress {
		return nil
	}
	open, err := s.orderRepo.CountOpenWorkOrdersTx(tx, moID)
	if err != nil {
		return err
	}
	if open > 0 {
		return nil
	}
	if err := s.orderRepo.UpdatesTx(tx, moID, map[string]interface{}{
		"status": entity.MOStatusToClose,
	}); err != nil {
		return err
	}
	return s.appendHistoryTx(tx, moID, entity.MOStatusToClose)
}

// Cancel 任意非终态→Cancelled，不发生库存变动
func (s *OrderService) Cancel(ctx context.Context, moID string) error {
	return s.orderRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mo, err := s.lockOrder(tx, moID)
		if err != nil {
			return err
		}
		if entity.IsTerminalMOStatus(mo.Status) {
			return fmt.Errorf("cancel from %q: %w", mo.Status, ErrInvalidState)
		}
		if err := s.orderRepo.UpdatesTx(tx, moID, map[string]interface{}{
			"status": entity.MOStatusCancelled,
		}); err != nil {
			return err
		}
		return s.appendHistoryTx(tx, moID, entity.MOStatusCancelled)
	})
}

// Produce To Close→Done：扣减组件、成品入库、记历史，整体原子。
// Requirements are re-derived here; the availability annotation is advisory
// only. Shortages are not re-checked and consumption may drive stock negative;
// the reorder compensation usually pulls the level back above minimum.
func (s *OrderService) Produce(ctx context.Context, moID string) error {
	mo, err := s.orderRepo.FindByID(ctx, moID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("order %s: %w", moID, ErrNotFound)
		}
		return fmt.Errorf("load order: %w", err)
	}

	// BOMs are structurally frozen once referenced by an MO, so resolving
	// ahead of the transaction reads the same rows the commit path would.
	var components []ComponentRequirement
	if mo.BOMID != nil {
		requirements, err := s.bomSvc.Resolve(ctx, *mo.BOMID, mo.QuantityToProduce)
		if err != nil {
			return err
		}
		components = requirements.Components
	}

	err = s.orderRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockOrder(tx, moID)
		if err != nil {
			return err
		}
		if locked.Status != entity.MOStatusToClose {
			return fmt.Errorf("produce from %q: %w", locked.Status, ErrInvalidState)
		}

		// Lock every touched product row in one stable order before any
		// mutation, so two MOs sharing components cannot deadlock or race.
		required := make(map[string]int, len(components))
		for _, comp := range components {
			required[comp.ProductID] += comp.Required
		}
		ids := make([]string, 0, len(required)+1)
		for id := range required {
			ids = append(ids, id)
		}
		if _, ok := required[locked.ProductID]; !ok {
			ids = append(ids, locked.ProductID)
		}
		sort.Strings(ids)

		products := make(map[string]*entity.Product, len(ids))
		for _, id := range ids {
			p, err := s.productRepo.FindForUpdate(tx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("product %s: %w", id, ErrNotFound)
				}
				return fmt.Errorf("lock product: %w", err)
			}
			products[id] = p
		}

		for _, id := range ids {
			qty, ok := required[id]
			if !ok || qty == 0 {
				continue
			}
			if err := s.invSvc.ConsumeTx(tx, products[id], qty, moID); err != nil {
				return err
			}
		}
		if err := s.invSvc.CreditTx(tx, products[locked.ProductID], locked.QuantityToProduce, moID); err != nil {
			return err
		}

		if err := s.orderRepo.UpdatesTx(tx, moID, map[string]interface{}{
			"status":       entity.MOStatusDone,
			"completed_at": s.now(),
		}); err != nil {
			return err
		}
		return s.appendHistoryTx(tx, moID, entity.MOStatusDone)
	})
	if err != nil {
		return err
	}

	s.availability.InvalidateSnapshot(ctx)
	s.logger.Info("Manufacturing order produced",
		zap.String("mo_id", moID),
		zap.String("product_id", mo.ProductID),
		zap.Int("quantity", mo.QuantityToProduce),
	)
	return nil
}

func (s *OrderService) lockOrder(tx *gorm.DB, moID string) (*entity.ManufacturingOrder, error) {
	mo, err := s.orderRepo.FindForUpdate(tx, moID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", moID, ErrNotFound)
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return mo, nil
}

// List 带过滤与可用性标注的订单列表
func (s *OrderService) List(ctx context.Context, params repository.OrderListParams) ([]AnnotatedOrder, error) {
	if params.Today.IsZero() {
		params.Today = s.now().Truncate(24 * time.Hour)
	}
	orders, err := s.orderRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return s.availability.Annotate(ctx, orders)
}

// KPIs 仪表盘统计：全量与当前操作者两个切片
func (s *OrderService) KPIs(ctx context.Context, actorID string) (map[string]*repository.KPICounts, error) {
	today := s.now().Truncate(24 * time.Hour)
	all, err := s.orderRepo.CountKPIs(ctx, "", today)
	if err != nil {
		return nil, err
	}
	result := map[string]*repository.KPICounts{"all": all}
	if actorID != "" {
		mine, err := s.orderRepo.CountKPIs(ctx, actorID, today)
		if err != nil {
			return nil, err
		}
		result["my"] = mine
	}
	return result, nil
}

// ComponentLine 详情页组件行
type ComponentLine struct {
	ComponentName      string `json:"component_name"`
	OnHandQuantity     int    `json:"on_hand_quantity"`
	ToConsume          int    `json:"to_consume"`
	AvailabilityStatus string `json:"availability_status"`
}

// OrderView 刷新后的完整订单视图（重定向与数据API共用）
type OrderView struct {
	Order      *entity.ManufacturingOrder `json:"order"`
	Components []ComponentLine            `json:"components"`
	WorkOrders []entity.WorkOrder         `json:"work_orders"`
	History    []entity.MOStatusHistory   `json:"status_history"`
}

// Detail 只读详情视图
func (s *OrderService) Detail(ctx context.Context, moID string) (*OrderView, error) {
	mo, err := s.orderRepo.FindByID(ctx, moID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", moID, ErrNotFound)
		}
		return nil, fmt.Errorf("load order: %w", err)
	}

	view := &OrderView{
		Order:      mo,
		Components: []ComponentLine{},
		WorkOrders: mo.WorkOrders,
		History:    mo.History,
	}
	if mo.BOMID != nil {
		bom, err := s.bomSvc.bomRepo.FindByID(ctx, *mo.BOMID)
		if err != nil {
			return nil, fmt.Errorf("load bom: %w", err)
		}
		for _, comp := range bom.Components {
			line := ComponentLine{
				ToConsume: comp.QuantityRequired * mo.QuantityToProduce,
			}
			if comp.Component != nil {
				line.ComponentName = comp.Component.Name
				line.OnHandQuantity = comp.Component.OnHandQuantity
			}
			line.AvailabilityStatus = ComponentStatusAvailable
			if line.OnHandQuantity < line.ToConsume {
				line.AvailabilityStatus = ComponentStatusNotAvailable
			}
			view.Components = append(view.Components, line)
		}
	}
	return view, nil
}

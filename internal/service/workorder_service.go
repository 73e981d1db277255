package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fabworks/mfg-core/internal/model/entity"
	"github.com/fabworks/mfg-core/internal/repository"
	"gorm.io/gorm"
)

// LifecycleHooks 工单追踪器回调的命名级联转换，由 OrderService 实现。
// Keeps the cascade rules in the lifecycle controller instead of scattering
// status conditionals across call sites.
type LifecycleHooks interface {
	StartFromWorkOrderTx(tx *gorm.DB, moID string) error
	CloseWhenAllDoneTx(tx *gorm.DB, moID string) error
}

// WorkOrderService 工单追踪：计时、完成、向生命周期控制器回报
type WorkOrderService struct {
	orderRepo *repository.OrderRepository
	hooks     LifecycleHooks
	now       func() time.Time
}

func NewWorkOrderService(orderRepo *repository.OrderRepository, hooks LifecycleHooks) *WorkOrderService {
	return &WorkOrderService{
		orderRepo: orderRepo,
		hooks:     hooks,
		now:       time.Now,
	}
}

// SetClock 测试用时钟注入
func (s *WorkOrderService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *WorkOrderService) lockWorkOrder(tx *gorm.DB, woID, moID string) (*entity.WorkOrder, error) {
	wo, err := s.orderRepo.FindWorkOrderForUpdate(tx, woID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("work order %s: %w", woID, ErrNotFound)
		}
		return nil, fmt.Errorf("lock work order: %w", err)
	}
	if wo.MOID != moID {
		return nil, fmt.Errorf("work order %s does not belong to order %s: %w", woID, moID, ErrNotFound)
	}
	return wo, nil
}

// StartTimer 启动工单计时：start_time=now，状态 In Progress。
// 若父订单仍为 Confirmed，则通过级联规则推进到 In Progress。
func (s *WorkOrderService) StartTimer(ctx context.Context, woID, moID string) error {
	return s.orderRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wo, err := s.lockWorkOrder(tx, woID, moID)
		if err != nil {
			return err
		}
		if wo.Status == entity.WOStatusDone {
			return fmt.Errorf("work order already completed: %w", ErrInvalidState)
		}
		if err := s.orderRepo.UpdateWorkOrderTx(tx, woID, map[string]interface{}{
			"start_time": s.now(),
			"status":     entity.WOStatusInProgress,
		}); err != nil {
			return err
		}
		return s.hooks.StartFromWorkOrderTx(tx, moID)
	})
}

// Complete 完成工单：end_time=now，real_duration 取整分钟。
// Duration fields are write-once: re-completing a Done work order is rejected
// with ErrInvalidState. A completion that makes every work order of the MO
// Done promotes an In Progress MO to To Close via the cascade rule.
func (s *WorkOrderService) Complete(ctx context.Context, woID, moID string) error {
	return s.orderRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wo, err := s.lockWorkOrder(tx, woID, moID)
		if err != nil {
			return err
		}
		if wo.Status == entity.WOStatusDone {
			return fmt.Errorf("work order already completed: %w", ErrInvalidState)
		}

		endTime := s.now()
		// Missing start_time is a data anomaly, not a fatal error: the
		// real duration is recorded as zero.
		realDuration := 0
		if wo.StartTime != nil {
			realDuration = int(math.Round(endTime.Sub(*wo.StartTime).Seconds() / 60))
		}
		if err := s.orderRepo.UpdateWorkOrderTx(tx, woID, map[string]interface{}{
			"end_time":              endTime,
			"real_duration_minutes": realDuration,
			"status":                entity.WOStatusDone,
		}); err != nil {
			return err
		}
		return s.hooks.CloseWhenAllDoneTx(tx, moID)
	})
}

// List 跨订单工单列表
func (s *WorkOrderService) List(ctx context.Context, params repository.WorkOrderListParams) ([]entity.WorkOrder, error) {
	return s.orderRepo.ListWorkOrders(ctx, params)
}

package repository

import (
	"context"
	"strings"
	"time"

	"github.com/fabworks/mfg-core/internal/model/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateTx 创建制造订单（连同工单、历史），必须在事务内调用
func (r *OrderRepository) CreateTx(tx *gorm.DB, mo *entity.ManufacturingOrder) error {
	return tx.Create(mo).Error
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.ManufacturingOrder, error) {
	var mo entity.ManufacturingOrder
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("BOM").
		Preload("Assignee").
		Preload("WorkOrders", func(db *gorm.DB) *gorm.DB {
			return db.Order("work_orders.created_at ASC")
		}).
		Preload("WorkOrders.WorkCenter").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("manufacturing_order_status_history.timestamp ASC")
		}).
		Where("id = ?", id).
		First(&mo).Error
	if err != nil {
		return nil, err
	}
	return &mo, nil
}

// FindForUpdate 行级锁读取订单行，必须在事务内调用
// Serializes concurrent transitions on the same MO.
func (r *OrderRepository) FindForUpdate(tx *gorm.DB, id string) (*entity.ManufacturingOrder, error) {
	var mo entity.ManufacturingOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&mo).Error
	if err != nil {
		return nil, err
	}
	return &mo, nil
}

// UpdatesTx 更新订单字段，必须在事务内调用
func (r *OrderRepository) UpdatesTx(tx *gorm.DB, id string, updates map[string]interface{}) error {
	return tx.Model(&entity.ManufacturingOrder{}).Where("id = ?", id).Updates(updates).Error
}

// AppendHistoryTx 追加一条状态历史，必须在事务内调用
func (r *OrderRepository) AppendHistoryTx(tx *gorm.DB, h *entity.MOStatusHistory) error {
	return tx.Create(h).Error
}

// MO列表过滤器取值
const (
	FilterAll         = "All"
	FilterLate        = "Late"
	FilterNotAssigned = "Not Assigned"
)

type OrderListParams struct {
	Filter  string // All, Draft, Confirmed, In Progress, Done, Late, Not Assigned
	Owner   string // all | my
	ActorID string
	Search  string
	Today   time.Time
}

func (r *OrderRepository) List(ctx context.Context, params OrderListParams) ([]entity.ManufacturingOrder, error) {
	query := r.db.WithContext(ctx).Model(&entity.ManufacturingOrder{}).
		Preload("Product")

	if params.Owner == "my" && params.ActorID != "" {
		query = query.Where("assignee_id = ?", params.ActorID)
	}

	switch params.Filter {
	case "", FilterAll:
	case FilterLate:
		query = query.Where("schedule_start_date < ? AND status = ?",
			params.Today, entity.MOStatusConfirmed)
	case FilterNotAssigned:
		query = query.Where("assignee_id IS NULL")
	default:
		query = query.Where("status = ?", params.Filter)
	}

	if params.Search != "" {
		kw := "%" + params.Search + "%"
		code := "%" + strings.TrimPrefix(params.Search, "MO-") + "%"
		query = query.
			Joins("JOIN products ON products.id = manufacturing_orders.product_id").
			Where("products.name ILIKE ? OR manufacturing_orders.status ILIKE ? OR manufacturing_orders.code ILIKE ?",
				kw, kw, code)
	}

	var orders []entity.ManufacturingOrder
	err := query.Order("schedule_start_date DESC NULLS LAST, created_at DESC").Find(&orders).Error
	return orders, err
}

// KPICounts 仪表盘统计
type KPICounts struct {
	All         int64            `json:"all"`
	ByStatus    map[string]int64 `json:"by_status"`
	Late        int64            `json:"late"`
	NotAssigned int64            `json:"not_assigned"`
}

func (r *OrderRepository) CountKPIs(ctx context.Context, assigneeID string, today time.Time) (*KPICounts, error) {
	counts := &KPICounts{ByStatus: make(map[string]int64)}

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&entity.ManufacturingOrder{})
		if assigneeID != "" {
			q = q.Where("assignee_id = ?", assigneeID)
		}
		return q
	}

	if err := base().Count(&counts.All).Error; err != nil {
		return nil, err
	}
	for _, status := range []string{
		entity.MOStatusDraft, entity.MOStatusConfirmed,
		entity.MOStatusInProgress, entity.MOStatusToClose, entity.MOStatusDone,
	} {
		var n int64
		if err := base().Where("status = ?", status).Count(&n).Error; err != nil {
			return nil, err
		}
		counts.ByStatus[status] = n
	}
	if err := base().Where("schedule_start_date < ? AND status = ?",
		today, entity.MOStatusConfirmed).Count(&counts.Late).Error; err != nil {
		return nil, err
	}
	if err := base().Where("assignee_id IS NULL").Count(&counts.NotAssigned).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

// ---- 工单 ----

func (r *OrderRepository) FindWorkOrder(ctx context.Context, id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&wo).Error
	if err != nil {
		return nil, err
	}
	return &wo, nil
}

// FindWorkOrderForUpdate 行级锁读取工单，必须在事务内调用
func (r *OrderRepository) FindWorkOrderForUpdate(tx *gorm.DB, id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&wo).Error
	if err != nil {
		return nil, err
	}
	return &wo, nil
}

// UpdateWorkOrderTx 更新工单字段，必须在事务内调用
func (r *OrderRepository) UpdateWorkOrderTx(tx *gorm.DB, id string, updates map[string]interface{}) error {
	return tx.Model(&entity.WorkOrder{}).Where("id = ?", id).Updates(updates).Error
}

// CountOpenWorkOrdersTx 统计该订单未完成的工单数，必须在事务内调用
func (r *OrderRepository) CountOpenWorkOrdersTx(tx *gorm.DB, moID string) (int64, error) {
	var n int64
	err := tx.Model(&entity.WorkOrder{}).
		Where("mo_id = ? AND status != ?", moID, entity.WOStatusDone).
		Count(&n).Error
	return n, err
}

type WorkOrderListParams struct {
	Search string
}

// ListWorkOrders 全部工单列表（跨订单）
func (r *OrderRepository) ListWorkOrders(ctx context.Context, params WorkOrderListParams) ([]entity.WorkOrder, error) {
	query := r.db.WithContext(ctx).Model(&entity.WorkOrder{}).
		Preload("WorkCenter")
	if params.Search != "" {
		kw := "%" + params.Search + "%"
		query = query.
			Joins("JOIN work_centers ON work_centers.id = work_orders.work_center_id").
			Joins("JOIN manufacturing_orders ON manufacturing_orders.id = work_orders.mo_id").
			Joins("JOIN products ON products.id = manufacturing_orders.product_id").
			Where("work_orders.operation_name ILIKE ? OR work_centers.name ILIKE ? OR products.name ILIKE ? OR work_orders.status ILIKE ?",
				kw, kw, kw, kw)
	}
	var wos []entity.WorkOrder
	err := query.Order("work_orders.created_at DESC").Find(&wos).Error
	return wos, err
}

// DB 返回底层db用于事务
func (r *OrderRepository) DB() *gorm.DB {
	return r.db
}

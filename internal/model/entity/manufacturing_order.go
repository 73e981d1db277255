package entity

import (
	"time"
)

// MOStatus 制造订单状态
// Draft → Confirmed → In Progress → To Close → Done; Cancelled is reachable
// from any non-terminal status. Done and Cancelled are terminal.
const (
	MOStatusDraft      = "Draft"
	MOStatusConfirmed  = "Confirmed"
	MOStatusInProgress = "In Progress"
	MOStatusToClose    = "To Close"
	MOStatusDone       = "Done"
	MOStatusCancelled  = "Cancelled"
)

// WOStatus 工单状态
const (
	WOStatusToDo       = "To Do"
	WOStatusInProgress = "In Progress"
	WOStatusDone       = "Done"
)

// IsTerminalMOStatus reports whether no further transition is allowed.
func IsTerminalMOStatus(status string) bool {
	return status == MOStatusDone || status == MOStatusCancelled
}

// ManufacturingOrder 制造订单
type ManufacturingOrder struct {
	ID                string     `json:"id" gorm:"primaryKey;size:36"`
	Code              string     `json:"code" gorm:"size:50;not null;uniqueIndex"`
	ProductID         string     `json:"product_id" gorm:"size:36;not null;index"`
	BOMID             *string    `json:"bom_id" gorm:"size:36;index"`
	QuantityToProduce int        `json:"quantity_to_produce" gorm:"not null"`
	Status            string     `json:"status" gorm:"size:20;not null;default:Draft"`
	ScheduleStartDate *time.Time `json:"schedule_start_date"`
	AssigneeID        *string    `json:"assignee_id" gorm:"size:36;index"`
	StartTime         *time.Time `json:"start_time"`
	CompletedAt       *time.Time `json:"completed_at"`
	CreatedBy         string     `json:"created_by" gorm:"size:36"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Product    *Product          `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	BOM        *BOM              `json:"bom,omitempty" gorm:"foreignKey:BOMID"`
	Assignee   *User             `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID"`
	WorkOrders []WorkOrder       `json:"work_orders,omitempty" gorm:"foreignKey:MOID"`
	History    []MOStatusHistory `json:"history,omitempty" gorm:"foreignKey:MOID"`
}

func (ManufacturingOrder) TableName() string {
	return "manufacturing_orders"
}

// WorkOrder 工单（制造订单下的一道工序）
// Duration fields are write-once after completion.
type WorkOrder struct {
	ID                  string     `json:"id" gorm:"primaryKey;size:36"`
	MOID                string     `json:"mo_id" gorm:"size:36;not null;index"`
	OperationName       string     `json:"operation_name" gorm:"size:128;not null"`
	WorkCenterID        string     `json:"work_center_id" gorm:"size:36;not null"`
	Status              string     `json:"status" gorm:"size:20;not null;default:To Do"`
	DurationMinutes     int        `json:"duration_minutes" gorm:"not null;default:0"`
	RealDurationMinutes int        `json:"real_duration_minutes" gorm:"not null;default:0"`
	StartTime           *time.Time `json:"start_time"`
	EndTime             *time.Time `json:"end_time"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	WorkCenter *WorkCenter `json:"work_center,omitempty" gorm:"foreignKey:WorkCenterID"`
}

func (WorkOrder) TableName() string {
	return "work_orders"
}

// MOStatusHistory 状态变更历史（审计，append-only）
// Exactly one row per committed transition; timestamps are monotonically
// non-decreasing per MO.
type MOStatusHistory struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	MOID      string    `json:"mo_id" gorm:"size:36;not null;index"`
	Status    string    `json:"status" gorm:"size:20;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index"`
}

func (MOStatusHistory) TableName() string {
	return "manufacturing_order_status_history"
}

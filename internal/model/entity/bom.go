package entity

import (
	"time"
)

// BOM 物料清单（BOM头）
// A BOM is structurally independent from the orders that reference it: MOs
// copy the resolved operations into their own work orders at creation time,
// so editing a BOM never retroactively changes an existing MO.
type BOM struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	ProductID string    `json:"product_id" gorm:"size:36;not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Product    *Product       `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Components []BOMComponent `json:"components,omitempty" gorm:"foreignKey:BOMID"`
	Operations []BOMOperation `json:"operations,omitempty" gorm:"foreignKey:BOMID"`
}

func (BOM) TableName() string {
	return "boms"
}

// BOMComponent BOM组件行（每单位产出所需数量）
type BOMComponent struct {
	ID                 string    `json:"id" gorm:"primaryKey;size:36"`
	BOMID              string    `json:"bom_id" gorm:"size:36;not null;index"`
	ComponentProductID string    `json:"component_product_id" gorm:"size:36;not null"`
	QuantityRequired   int       `json:"quantity_required" gorm:"not null"`
	CreatedAt          time.Time `json:"created_at"`

	Component *Product `json:"component,omitempty" gorm:"foreignKey:ComponentProductID"`
}

func (BOMComponent) TableName() string {
	return "bom_components"
}

// BOMOperation BOM工序行
type BOMOperation struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	BOMID           string    `json:"bom_id" gorm:"size:36;not null;index"`
	Name            string    `json:"name" gorm:"size:128;not null"`
	WorkCenterID    string    `json:"work_center_id" gorm:"size:36;not null"`
	DurationMinutes int       `json:"duration_minutes" gorm:"not null;default:0"`
	CreatedAt       time.Time `json:"created_at"`

	WorkCenter *WorkCenter `json:"work_center,omitempty" gorm:"foreignKey:WorkCenterID"`
}

func (BOMOperation) TableName() string {
	return "bom_operations"
}

package entity

import (
	"time"
)

// Product 产品/物料主数据
// OnHandQuantity is a cached total derived from the stock ledger. It is only
// ever mutated inside an inventory transaction; after every committed
// operation it must equal SUM(stock_ledger.quantity_change) for the product.
type Product struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	Name            string     `json:"name" gorm:"size:128;not null;uniqueIndex"`
	Description     string     `json:"description" gorm:"type:text"`
	OnHandQuantity  int        `json:"on_hand_quantity" gorm:"not null;default:0"`
	MinStockLevel   int        `json:"min_stock_level" gorm:"not null;default:0"`
	ReorderQuantity int        `json:"reorder_quantity" gorm:"not null;default:0"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at" gorm:"index"`
}

func (Product) TableName() string {
	return "products"
}

// WorkCenter 工作中心
type WorkCenter struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Name        string    `json:"name" gorm:"size:128;not null"`
	CostPerHour float64   `json:"cost_per_hour" gorm:"type:decimal(12,2);default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (WorkCenter) TableName() string {
	return "work_centers"
}

// User 装配负责人（仅用于 assignee 展示，认证不在本服务范围内）
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	Email     string    `json:"email" gorm:"size:128;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

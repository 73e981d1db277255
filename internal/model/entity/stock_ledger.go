package entity

import (
	"time"
)

// LedgerReason 库存流水原因
const (
	ReasonInitialStock     = "Initial Stock"
	ReasonManualAddition   = "Manual Stock Addition"
	ReasonManualRemoval    = "Manual Stock Removal"
	ReasonMOConsumption    = "MO Consumption"
	ReasonMOProduction     = "MO Production"
	ReasonAutomaticReorder = "Automatic Reorder"
)

// StockLedgerEntry 库存流水（append-only，库存数量的事实来源）
type StockLedgerEntry struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	ProductID      string    `json:"product_id" gorm:"size:36;not null;index"`
	QuantityChange int       `json:"quantity_change" gorm:"not null"` // 正=入，负=出
	Reason         string    `json:"reason" gorm:"size:64;not null"`
	MOID           *string   `json:"mo_id" gorm:"size:36;index"`
	Timestamp      time.Time `json:"timestamp" gorm:"not null;index"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (StockLedgerEntry) TableName() string {
	return "stock_ledger"
}

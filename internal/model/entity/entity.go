package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 基础数据
		&Product{},
		&WorkCenter{},
		&User{},

		// BOM
		&BOM{},
		&BOMComponent{},
		&BOMOperation{},

		// 生产
		&ManufacturingOrder{},
		&WorkOrder{},
		&MOStatusHistory{},

		// 库存
		&StockLedgerEntry{},
	)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fabworks/mfg-core/internal/model/entity"
	"github.com/fabworks/mfg-core/internal/repository"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryService 库存：缓存数量 + append-only 流水，二者在同一事务内变更
type InventoryService struct {
	productRepo  *repository.ProductRepository
	availability *AvailabilityService
	logger       *zap.Logger
	now          func() time.Time
}

func NewInventoryService(productRepo *repository.ProductRepository, availability *AvailabilityService, logger *zap.Logger) *InventoryService {
	return &InventoryService{
		productRepo:  productRepo,
		availability: availability,
		logger:       logger,
		now:          time.Now,
	}
}

// SetClock 测试用时钟注入
func (s *InventoryService) SetClock(now func() time.Time) {
	s.now = now
}

// applyDeltaTx 对已锁定的产品行应用一次数量变化：更新缓存数量并追加流水。
// withReorder 为真时，下降越过 min_stock_level 会追加恰好一次自动补货，
// 补货本身不再触发补货。
func (s *InventoryService) applyDeltaTx(tx *gorm.DB, product *entity.Product, delta int, reason string, moID *string, withReorder bool) error {
	newLevel := product.OnHandQuantity + delta
	if err := s.productRepo.UpdateQuantityTx(tx, product.ID, newLevel); err != nil {
		return fmt.Errorf("update on-hand quantity: %w", err)
	}
	if err := s.productRepo.CreateLedgerTx(tx, &entity.StockLedgerEntry{
		ID:             uuid.New().String(),
		ProductID:      product.ID,
		QuantityChange: delta,
		Reason:         reason,
		MOID:           moID,
		Timestamp:      s.now(),
	}); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	product.OnHandQuantity = newLevel

	if withReorder && delta < 0 && newLevel < product.MinStockLevel && product.ReorderQuantity > 0 {
		s.logger.Warn("Low stock, automatic reorder",
			zap.String("product_id", product.ID),
			zap.String("product_name", product.Name),
			zap.Int("level", newLevel),
			zap.Int("min_stock_level", product.MinStockLevel),
			zap.Int("reorder_quantity", product.ReorderQuantity),
		)
		return s.applyDeltaTx(tx, product, product.ReorderQuantity, entity.ReasonAutomaticReorder, moID, false)
	}
	return nil
}

// ConsumeTx 生产消耗，必须在 produce 的事务内、对已锁定的组件行调用。
// Consumption is pre-gated by the lifecycle controller and may drive stock
// negative (see produce).
func (s *InventoryService) ConsumeTx(tx *gorm.DB, product *entity.Product, quantity int, moID string) error {
	return s.applyDeltaTx(tx, product, -quantity, entity.ReasonMOConsumption, &moID, true)
}

// CreditTx 成品入库，必须在 produce 的事务内、对已锁定的成品行调用
func (s *InventoryService) CreditTx(tx *gorm.DB, product *entity.Product, quantity int, moID string) error {
	return s.applyDeltaTx(tx, product, quantity, entity.ReasonMOProduction, &moID, false)
}

// AdjustOutcome 手工调整结果
type AdjustOutcome struct {
	Product     *entity.Product `json:"product"`
	Created     bool            `json:"created"`
	NewQuantity int             `json:"new_quantity"`
}

// Adjust 手工库存修正。
// 大小写不敏感按名称查找；产品不存在且 delta>0 时建档并记 Initial Stock；
// 不存在且 delta<=0 → ErrUnknownProduct；出库导致负数 → ErrInsufficientStock。
func (s *InventoryService) Adjust(ctx context.Context, productName string, delta int, description string) (*AdjustOutcome, error) {
	var outcome *AdjustOutcome
	err := s.productRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.findByNameForUpdate(tx, productName)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("lookup product: %w", err)
			}
			if delta <= 0 {
				return fmt.Errorf("product %q: %w", productName, ErrUnknownProduct)
			}
			created := &entity.Product{
				ID:          uuid.New().String(),
				Name:        productName,
				Description: description,
			}
			if err := tx.Create(created).Error; err != nil {
				return fmt.Errorf("create product: %w", err)
			}
			if err := s.applyDeltaTx(tx, created, delta, entity.ReasonInitialStock, nil, false); err != nil {
				return err
			}
			outcome = &AdjustOutcome{Product: created, Created: true, NewQuantity: created.OnHandQuantity}
			return nil
		}

		if product.OnHandQuantity+delta < 0 {
			return fmt.Errorf("cannot remove %d units of %q, only %d in stock: %w",
				-delta, product.Name, product.OnHandQuantity, ErrInsufficientStock)
		}
		reason := entity.ReasonManualAddition
		if delta < 0 {
			reason = entity.ReasonManualRemoval
		}
		if err := s.applyDeltaTx(tx, product, delta, reason, nil, true); err != nil {
			return err
		}
		outcome = &AdjustOutcome{Product: product, NewQuantity: product.OnHandQuantity}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.availability.InvalidateSnapshot(ctx)
	return outcome, nil
}

// findByNameForUpdate 大小写不敏感按名称锁定产品行
func (s *InventoryService) findByNameForUpdate(tx *gorm.DB, name string) (*entity.Product, error) {
	var p entity.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("LOWER(name) = LOWER(?)", name).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListLedger 库存流水分页
func (s *InventoryService) ListLedger(ctx context.Context, params repository.LedgerListParams) ([]entity.StockLedgerEntry, int64, error) {
	return s.productRepo.ListLedger(ctx, params)
}

var ledgerExportHeaders = []string{"Timestamp", "Product", "Change", "Reason", "MO"}

// ExportLedger 导出库存流水为xlsx
func (s *InventoryService) ExportLedger(ctx context.Context, productID string) (*excelize.File, string, error) {
	entries, _, err := s.productRepo.ListLedger(ctx, repository.LedgerListParams{
		ProductID: productID,
		Size:      10000,
	})
	if err != nil {
		return nil, "", fmt.Errorf("list ledger: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Stock Ledger"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range ledgerExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for i, e := range entries {
		row := i + 2
		productName := e.ProductID
		if e.Product != nil {
			productName = e.Product.Name
		}
		moRef := ""
		if e.MOID != nil {
			moRef = *e.MOID
		}
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), e.Timestamp.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), productName)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), e.QuantityChange)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), e.Reason)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), moRef)
	}

	filename := fmt.Sprintf("stock-ledger-%s.xlsx", s.now().Format("20060102-150405"))
	return f, filename, nil
}

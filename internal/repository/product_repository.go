package repository

import (
	"context"

	"github.com/fabworks/mfg-core/internal/model/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByNameFold 按名称查找产品（大小写不敏感）
func (r *ProductRepository) FindByNameFold(ctx context.Context, name string) (*entity.Product, error) {
	var p entity.Product
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindForUpdate 行级锁读取，必须在事务内调用
func (r *ProductRepository) FindForUpdate(tx *gorm.DB, id string) (*entity.Product, error) {
	var p entity.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *entity.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// UpdateQuantityTx 更新缓存库存数，必须在事务内调用
func (r *ProductRepository) UpdateQuantityTx(tx *gorm.DB, id string, quantity int) error {
	return tx.Model(&entity.Product{}).Where("id = ?", id).
		Update("on_hand_quantity", quantity).Error
}

type ProductListParams struct {
	Keyword string
	Page    int
	Size    int
}

func (r *ProductRepository) List(ctx context.Context, params ProductListParams) ([]entity.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Product{})
	if params.Keyword != "" {
		query = query.Where("name ILIKE ?", "%"+params.Keyword+"%")
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 50
	}
	var items []entity.Product
	err := query.Order("name ASC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&items).Error
	return items, total, err
}

// StockSnapshot 一次查询取得所有产品的在库数量
// One point-in-time view for a whole availability batch.
func (r *ProductRepository) StockSnapshot(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		ID             string
		OnHandQuantity int
	}
	err := r.db.WithContext(ctx).Model(&entity.Product{}).
		Select("id", "on_hand_quantity").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	snapshot := make(map[string]int, len(rows))
	for _, row := range rows {
		snapshot[row.ID] = row.OnHandQuantity
	}
	return snapshot, nil
}

// CreateLedgerTx 追加一条库存流水，必须在事务内调用
func (r *ProductRepository) CreateLedgerTx(tx *gorm.DB, e *entity.StockLedgerEntry) error {
	return tx.Create(e).Error
}

type LedgerListParams struct {
	ProductID string
	Page      int
	Size      int
}

func (r *ProductRepository) ListLedger(ctx context.Context, params LedgerListParams) ([]entity.StockLedgerEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.StockLedgerEntry{})
	if params.ProductID != "" {
		query = query.Where("product_id = ?", params.ProductID)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 50
	}
	var entries []entity.StockLedgerEntry
	err := query.Preload("Product").Order("timestamp DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&entries).Error
	return entries, total, err
}

// LedgerSum 某产品全部流水之和（用于对账）
func (r *ProductRepository) LedgerSum(ctx context.Context, productID string) (int, error) {
	var result struct{ Total int }
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(quantity_change), 0) AS total
		FROM stock_ledger
		WHERE product_id = ?
	`, productID).Scan(&result).Error
	return result.Total, err
}

// DB 返回底层db用于事务
func (r *ProductRepository) DB() *gorm.DB {
	return r.db
}

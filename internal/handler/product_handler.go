package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/fabworks/mfg-core/internal/repository"
	"github.com/fabworks/mfg-core/internal/service"
	"github.com/gin-gonic/gin"
)

// ProductHandler 产品只读查询 + 手工库存修正 + 流水查询/导出。
// 产品与工作中心的建档编辑属于外部登记系统，不在本服务范围内。
type ProductHandler struct {
	invSvc      *service.InventoryService
	productRepo *repository.ProductRepository
}

func NewProductHandler(invSvc *service.InventoryService, productRepo *repository.ProductRepository) *ProductHandler {
	return &ProductHandler{invSvc: invSvc, productRepo: productRepo}
}

// List GET /products?keyword=&page=&size=
func (h *ProductHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "50"))
	items, total, err := h.productRepo.List(c.Request.Context(), repository.ProductListParams{
		Keyword: c.Query("keyword"),
		Page:    page,
		Size:    size,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"items": items, "total": total, "page": page, "size": size})
}

// Get GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.productRepo.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": "product not found"})
		return
	}
	ok(c, p)
}

type adjustStockRequest struct {
	Name           string `json:"name" binding:"required"`
	QuantityChange int    `json:"quantity_change" binding:"required"`
	Description    string `json:"description"`
}

// AdjustStock POST /stock/adjust 手工库存修正
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	outcome, err := h.invSvc.Adjust(c.Request.Context(), req.Name, req.QuantityChange, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, outcome)
}

// Ledger GET /stock/ledger?product_id=&page=&size=
func (h *ProductHandler) Ledger(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "50"))
	entries, total, err := h.invSvc.ListLedger(c.Request.Context(), repository.LedgerListParams{
		ProductID: c.Query("product_id"),
		Page:      page,
		Size:      size,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"items": entries, "total": total, "page": page, "size": size})
}

// ExportLedger GET /stock/ledger/export xlsx下载
func (h *ProductHandler) ExportLedger(c *gin.Context) {
	f, filename, err := h.invSvc.ExportLedger(c.Request.Context(), c.Query("product_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		fail(c, err)
	}
}

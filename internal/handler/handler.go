package handler

import (
	"errors"
	"net/http"

	"github.com/fabworks/mfg-core/internal/repository"
	"github.com/fabworks/mfg-core/internal/service"
	"github.com/gin-gonic/gin"
)

// Handlers HTTP处理器集合
type Handlers struct {
	Order     *OrderHandler
	WorkOrder *WorkOrderHandler
	Product   *ProductHandler
}

func NewHandlers(services *service.Services, repos *repository.Repositories) *Handlers {
	return &Handlers{
		Order:     NewOrderHandler(services.Order),
		WorkOrder: NewWorkOrderHandler(services.WorkOrder, services.Order),
		Product:   NewProductHandler(services.Inventory, repos.Product),
	}
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": data})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": msg})
}

// fail 恢复领域错误种类并映射为HTTP响应。所有错误在边界吸收为用户可见
// 消息，不向上冒泡崩溃。
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"code": 10004, "message": err.Error()})
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrUnknownProduct):
		c.JSON(http.StatusBadRequest, gin.H{"code": 10005, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
	}
}

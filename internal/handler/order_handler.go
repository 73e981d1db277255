package handler

import (
	"time"

	"github.com/fabworks/mfg-core/internal/repository"
	"github.com/fabworks/mfg-core/internal/service"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// List GET /manufacturing-orders?filter=&owner=&search=
func (h *OrderHandler) List(c *gin.Context) {
	params := repository.OrderListParams{
		Filter:  c.DefaultQuery("filter", repository.FilterAll),
		Owner:   c.DefaultQuery("owner", "all"),
		ActorID: c.GetString("actor_id"),
		Search:  c.Query("search"),
	}
	orders, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"items": orders, "total": len(orders)})
}

// KPIs GET /manufacturing-orders/kpis
func (h *OrderHandler) KPIs(c *gin.Context) {
	counts, err := h.svc.KPIs(c.Request.Context(), c.GetString("actor_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, counts)
}

type createOrderRequest struct {
	ProductID         string  `json:"product_id" binding:"required"`
	BOMID             *string `json:"bom_id"`
	QuantityToProduce int     `json:"quantity_to_produce" binding:"required,gt=0"`
	ScheduleStartDate string  `json:"schedule_start_date"` // YYYY-MM-DD
	AssigneeID        *string `json:"assignee_id"`
}

// Create POST /manufacturing-orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	createReq := service.CreateOrderRequest{
		ProductID:         req.ProductID,
		BOMID:             req.BOMID,
		QuantityToProduce: req.QuantityToProduce,
		AssigneeID:        req.AssigneeID,
	}
	if req.ScheduleStartDate != "" {
		t, err := time.Parse("2006-01-02", req.ScheduleStartDate)
		if err != nil {
			badRequest(c, "schedule_start_date must be YYYY-MM-DD")
			return
		}
		createReq.ScheduleStartDate = &t
	}
	// 未显式指定负责人时默认为当前操作者
	if createReq.AssigneeID == nil {
		if actorID := c.GetString("actor_id"); actorID != "" {
			createReq.AssigneeID = &actorID
		}
	}

	mo, err := h.svc.Create(c.Request.Context(), createReq, c.GetString("actor_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, mo)
}

// Detail GET /manufacturing-orders/:id
func (h *OrderHandler) Detail(c *gin.Context) {
	view, err := h.svc.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, view)
}

// transition 共用模板：执行转换后返回刷新的完整视图
func (h *OrderHandler) transition(c *gin.Context, run func(ctx *gin.Context, moID string) error) {
	moID := c.Param("id")
	if err := run(c, moID); err != nil {
		fail(c, err)
		return
	}
	view, err := h.svc.Detail(c.Request.Context(), moID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, view)
}

// Confirm POST /manufacturing-orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, moID string) error {
		return h.svc.Confirm(ctx.Request.Context(), moID)
	})
}

// Start POST /manufacturing-orders/:id/start
func (h *OrderHandler) Start(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, moID string) error {
		return h.svc.Start(ctx.Request.Context(), moID)
	})
}

// Cancel POST /manufacturing-orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, moID string) error {
		return h.svc.Cancel(ctx.Request.Context(), moID)
	})
}

// Produce POST /manufacturing-orders/:id/produce
func (h *OrderHandler) Produce(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, moID string) error {
		return h.svc.Produce(ctx.Request.Context(), moID)
	})
}

package handler

import (
	"github.com/fabworks/mfg-core/internal/repository"
	"github.com/fabworks/mfg-core/internal/service"
	"github.com/gin-gonic/gin"
)

type WorkOrderHandler struct {
	svc      *service.WorkOrderService
	orderSvc *service.OrderService
}

func NewWorkOrderHandler(svc *service.WorkOrderService, orderSvc *service.OrderService) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc, orderSvc: orderSvc}
}

// List GET /work-orders?search=
func (h *WorkOrderHandler) List(c *gin.Context) {
	wos, err := h.svc.List(c.Request.Context(), repository.WorkOrderListParams{
		Search: c.Query("search"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"items": wos, "total": len(wos)})
}

type workOrderActionRequest struct {
	MOID string `json:"mo_id" binding:"required"`
}

// StartTimer POST /work-orders/:id/start
func (h *WorkOrderHandler) StartTimer(c *gin.Context) {
	var req workOrderActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.StartTimer(c.Request.Context(), c.Param("id"), req.MOID); err != nil {
		fail(c, err)
		return
	}
	view, err := h.orderSvc.Detail(c.Request.Context(), req.MOID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, view)
}

// Complete POST /work-orders/:id/complete
func (h *WorkOrderHandler) Complete(c *gin.Context) {
	var req workOrderActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.Complete(c.Request.Context(), c.Param("id"), req.MOID); err != nil {
		fail(c, err)
		return
	}
	view, err := h.orderSvc.Detail(c.Request.Context(), req.MOID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, view)
}

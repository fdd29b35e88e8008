package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/auth"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/fekuna/omnipos-ledger-service/internal/salesorder"
	"github.com/fekuna/omnipos-ledger-service/internal/salesorder/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type SalesOrderHandler struct {
	uc     salesorder.UseCase
	logger logger.ZapLogger
}

func NewSalesOrderHandler(uc salesorder.UseCase, log logger.ZapLogger) *SalesOrderHandler {
	return &SalesOrderHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *SalesOrderHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/sales-orders", h.CreateSalesOrder)
	rg.GET("/sales-orders", h.ListSalesOrders)
	rg.GET("/sales-orders/:id", h.GetSalesOrder)
	rg.POST("/sales-orders/:id/confirm", h.Confirm)
	rg.POST("/sales-orders/:id/cancel", h.Cancel)
}

type lineRequest struct {
	ItemID string          `json:"itemId"`
	Qty    decimal.Decimal `json:"qty"`
}

type createSalesOrderRequest struct {
	Notes string        `json:"notes"`
	Lines []lineRequest `json:"lines"`
}

func (h *SalesOrderHandler) CreateSalesOrder(c *gin.Context) {
	var req createSalesOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.Validation("invalid request body").Wrap(err))
		return
	}

	input := &dto.CreateSalesOrderInput{Notes: req.Notes, Lines: make([]dto.LineInput, len(req.Lines))}
	for i, l := range req.Lines {
		input.Lines[i] = dto.LineInput{ItemID: l.ItemID, Qty: l.Qty}
	}

	so, err := h.uc.CreateSalesOrder(c.Request.Context(), auth.GetActor(c), input)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, so)
}

func (h *SalesOrderHandler) GetSalesOrder(c *gin.Context) {
	so, err := h.uc.GetSalesOrder(c.Request.Context(), auth.GetActor(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, so)
}

func (h *SalesOrderHandler) ListSalesOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(dto.DefaultListLimit)))

	orders, err := h.uc.ListSalesOrders(c.Request.Context(), auth.GetActor(c), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if orders == nil {
		orders = []model.SalesOrder{}
	}

	c.JSON(http.StatusOK, gin.H{"items": orders})
}

type confirmResponse struct {
	ID          string                 `json:"id"`
	Status      model.SalesOrderStatus `json:"status"`
	ConfirmedAt *time.Time             `json:"confirmedAt"`
}

type cancelResponse struct {
	ID          string                 `json:"id"`
	Status      model.SalesOrderStatus `json:"status"`
	CancelledAt *time.Time             `json:"cancelledAt"`
}

func (h *SalesOrderHandler) Confirm(c *gin.Context) {
	so, err := h.uc.Confirm(c.Request.Context(), auth.GetActor(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, confirmResponse{ID: so.ID, Status: so.Status, ConfirmedAt: so.ConfirmedAt})
}

func (h *SalesOrderHandler) Cancel(c *gin.Context) {
	so, err := h.uc.Cancel(c.Request.Context(), auth.GetActor(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, cancelResponse{ID: so.ID, Status: so.Status, CancelledAt: so.CancelledAt})
}

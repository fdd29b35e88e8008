package handler

import (
	"net/http"
	"strconv"

	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/auth"
	"github.com/fekuna/omnipos-ledger-service/internal/inventory"
	"github.com/fekuna/omnipos-ledger-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InventoryHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/inventory/adjust", h.AdjustInventory)
	rg.GET("/items/:itemId/balance", h.GetBalance)
	rg.GET("/items/:itemId/availability", h.GetAvailability)
	rg.GET("/items/:itemId/movements", h.ListMovements)
}

// Amounts accept JSON numbers or numeric strings.
type adjustRequest struct {
	ItemID        string           `json:"itemId"`
	QtyDelta      decimal.Decimal  `json:"qtyDelta"`
	UnitCostMinor *decimal.Decimal `json:"unitCostMinor"`
	Note          string           `json:"note"`
}

func (h *InventoryHandler) AdjustInventory(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.Validation("invalid request body").Wrap(err))
		return
	}

	result, err := h.uc.ApplyAdjustment(c.Request.Context(), auth.GetActor(c), &dto.AdjustInventoryInput{
		ItemID:        req.ItemID,
		QtyDelta:      req.QtyDelta,
		UnitCostMinor: req.UnitCostMinor,
		Note:          req.Note,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type balanceResponse struct {
	model.InventoryBalance
	QtyAvailable decimal.Decimal `json:"qtyAvailable"`
}

func (h *InventoryHandler) GetBalance(c *gin.Context) {
	bal, err := h.uc.GetBalance(c.Request.Context(), auth.GetActor(c), c.Param("itemId"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balanceResponse{InventoryBalance: *bal, QtyAvailable: bal.QtyAvailable()}})
}

func (h *InventoryHandler) GetAvailability(c *gin.Context) {
	avail, err := h.uc.GetAvailability(c.Request.Context(), auth.GetActor(c), c.Param("itemId"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, avail)
}

func (h *InventoryHandler) ListMovements(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(dto.DefaultMovementLimit)))

	movements, err := h.uc.ListMovements(c.Request.Context(), auth.GetActor(c), c.Param("itemId"), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if movements == nil {
		movements = []model.InventoryMovement{}
	}

	c.JSON(http.StatusOK, gin.H{"movements": movements})
}

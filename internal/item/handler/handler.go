package handler

import (
	"net/http"
	"strconv"

	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/auth"
	"github.com/fekuna/omnipos-ledger-service/internal/item"
	"github.com/fekuna/omnipos-ledger-service/internal/item/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/gin-gonic/gin"
)

type ItemHandler struct {
	uc     item.UseCase
	logger logger.ZapLogger
}

func NewItemHandler(uc item.UseCase, log logger.ZapLogger) *ItemHandler {
	return &ItemHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ItemHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/items", h.CreateItem)
	rg.GET("/items", h.ListItems)
}

type createItemRequest struct {
	SKU     string `json:"sku"`
	NameEn  string `json:"nameEn"`
	NameAr  string `json:"nameAr"`
	IsStock *bool  `json:"isStock"`
}

func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.Validation("invalid request body").Wrap(err))
		return
	}

	it, err := h.uc.CreateItem(c.Request.Context(), auth.GetActor(c), &dto.CreateItemInput{
		SKU:     req.SKU,
		NameEn:  req.NameEn,
		NameAr:  req.NameAr,
		IsStock: req.IsStock,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": it})
}

func (h *ItemHandler) ListItems(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(dto.DefaultListLimit)))

	result, err := h.uc.ListItems(c.Request.Context(), auth.GetActor(c), &dto.ItemFilters{
		Query: c.Query("q"),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

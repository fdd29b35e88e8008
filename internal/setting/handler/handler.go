package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/auth"
	"github.com/fekuna/omnipos-ledger-service/internal/setting"
	"github.com/gin-gonic/gin"
)

type SettingHandler struct {
	uc setting.UseCase
}

func NewSettingHandler(uc setting.UseCase) *SettingHandler {
	return &SettingHandler{uc: uc}
}

func (h *SettingHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/settings/tenant", h.GetSetting)
	rg.PUT("/settings/tenant", h.UpdateSetting)
}

type updateSettingRequest struct {
	AllowNegativeStock *bool `json:"allowNegativeStock" binding:"required"`
}

func (h *SettingHandler) GetSetting(c *gin.Context) {
	s, err := h.uc.GetSetting(c.Request.Context(), auth.GetActor(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"setting": s})
}

func (h *SettingHandler) UpdateSetting(c *gin.Context) {
	var req updateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.Validation("allowNegativeStock must be a boolean").Wrap(err))
		return
	}

	s, err := h.uc.UpdateSetting(c.Request.Context(), auth.GetActor(c), *req.AllowNegativeStock)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"setting": s})
}

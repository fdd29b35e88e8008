package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/auth"
	"github.com/fekuna/omnipos-ledger-service/internal/invoice"
	"github.com/fekuna/omnipos-ledger-service/internal/invoice/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type InvoiceHandler struct {
	uc     invoice.UseCase
	logger logger.ZapLogger
}

func NewInvoiceHandler(uc invoice.UseCase, log logger.ZapLogger) *InvoiceHandler {
	return &InvoiceHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InvoiceHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/invoices", h.CreateInvoice)
	rg.POST("/invoices/from-sales-order/:salesOrderId", h.IssueFromSalesOrder)
	rg.GET("/invoices/:id", h.GetInvoice)
	rg.GET("/invoices/:id/payments", h.ListPayments)
	rg.POST("/invoices/:id/payments", h.AddPayment)
}

type invoiceLineRequest struct {
	ItemID         string          `json:"itemId"`
	Qty            decimal.Decimal `json:"qty"`
	UnitPriceMinor decimal.Decimal `json:"unitPriceMinor"`
}

type createInvoiceRequest struct {
	SalesOrderID string               `json:"salesOrderId"`
	Notes        string               `json:"notes"`
	Lines        []invoiceLineRequest `json:"lines"`
}

type addPaymentRequest struct {
	AmountMinor decimal.Decimal `json:"amountMinor"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
	Note        string          `json:"note"`
}

func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.Validation("invalid request body").Wrap(err))
		return
	}

	input := &dto.CreateInvoiceInput{SalesOrderID: req.SalesOrderID, Notes: req.Notes, Lines: make([]dto.LineInput, len(req.Lines))}
	for i, l := range req.Lines {
		input.Lines[i] = dto.LineInput{ItemID: l.ItemID, Qty: l.Qty, UnitPriceMinor: l.UnitPriceMinor}
	}

	inv, err := h.uc.CreateInvoice(c.Request.Context(), auth.GetActor(c), input)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"invoice": inv})
}

// IssueFromSalesOrder answers 201 for a new invoice and 200 when the order
// was already invoiced.
func (h *InvoiceHandler) IssueFromSalesOrder(c *gin.Context) {
	result, err := h.uc.IssueFromSalesOrder(c.Request.Context(), auth.GetActor(c), c.Param("salesOrderId"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"invoice": result.Invoice})
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	inv, err := h.uc.GetInvoice(c.Request.Context(), auth.GetActor(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	payments, err := h.uc.ListPayments(c.Request.Context(), auth.GetActor(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *InvoiceHandler) AddPayment(c *gin.Context) {
	var req addPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.Validation("invalid request body").Wrap(err))
		return
	}

	result, err := h.uc.AddPayment(c.Request.Context(), auth.GetActor(c), c.Param("id"), &dto.AddPaymentInput{
		AmountMinor: req.AmountMinor,
		Method:      req.Method,
		Reference:   req.Reference,
		Note:        req.Note,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

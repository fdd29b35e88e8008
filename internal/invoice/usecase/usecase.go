package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/audit"
	"github.com/fekuna/omnipos-ledger-service/internal/invoice"
	"github.com/fekuna/omnipos-ledger-service/internal/invoice/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/fekuna/omnipos-ledger-service/internal/store"
	"github.com/fekuna/omnipos-ledger-service/internal/tracing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxNotesLength     = 5000
	maxMethodLength    = 50
	maxReferenceLength = 100
	maxNoteLength      = 500
)

type invoiceUseCase struct {
	store  store.Store
	logger logger.ZapLogger
}

func NewInvoiceUseCase(s store.Store, log logger.ZapLogger) invoice.UseCase {
	return &invoiceUseCase{
		store:  s,
		logger: log,
	}
}

// CreateInvoice records a qty-only invoice. Priced lines are rejected until
// pricing exists, so the total is always zero.
func (uc *invoiceUseCase) CreateInvoice(ctx context.Context, actor model.Actor, input *dto.CreateInvoiceInput) (inv *model.Invoice, err error) {
	ctx, span := tracing.Start(ctx, "invoice.CreateInvoice", actor.TenantID)
	defer func() { tracing.End(span, err) }()

	if err := validateCreate(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inv = &model.Invoice{
		ID:         uuid.New().String(),
		TenantID:   actor.TenantID,
		Status:     invoice.ComputeStatus(decimal.Zero, decimal.Zero),
		TotalMinor: decimal.Zero,
		PaidMinor:  decimal.Zero,
		CreatedAt:  now,
		Payments:   []model.Payment{},
	}
	if id := strings.TrimSpace(input.SalesOrderID); id != "" {
		inv.SalesOrderID = &id
	}
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		inv.Notes = &notes
	}
	inv.Lines = make([]model.InvoiceLine, len(input.Lines))
	for i, l := range input.Lines {
		inv.Lines[i] = model.InvoiceLine{
			ID:             uuid.New().String(),
			TenantID:       actor.TenantID,
			InvoiceID:      inv.ID,
			LineNo:         i + 1,
			ItemID:         l.ItemID,
			Qty:            l.Qty,
			UnitPriceMinor: decimal.Zero,
			LineTotalMinor: decimal.Zero,
		}
	}

	err = uc.store.WithTx(ctx, func(tx store.Tx) error {
		if err := requireTenantItems(ctx, tx, actor.TenantID, inv.Lines); err != nil {
			return err
		}

		if inv.SalesOrderID != nil {
			if err := tx.Lock(ctx, actor.TenantID, *inv.SalesOrderID); err != nil {
				return err
			}
			so, err := tx.SalesOrders().FindByID(ctx, actor.TenantID, *inv.SalesOrderID)
			if err != nil {
				return err
			}
			if so == nil {
				return apperr.BadRequest("bad_request", "salesOrderId is invalid for this tenant")
			}
			if so.Status != model.SalesOrderConfirmed {
				return apperr.Conflict("sales order must be CONFIRMED to issue an invoice")
			}
		}

		if err := tx.Invoices().Create(ctx, inv); err != nil {
			if errors.Is(err, invoice.ErrSalesOrderInvoiced) {
				return apperr.Conflict("sales order already has an invoice").Wrap(err)
			}
			return err
		}
		return tx.Audit().Append(ctx, audit.NewEvent(actor, audit.ActionInvoiceCreate, audit.EntityInvoice, inv.ID,
			map[string]any{"totalMinor": inv.TotalMinor.String(), "lines": len(inv.Lines)}))
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func validateCreate(input *dto.CreateInvoiceInput) error {
	if len(input.Lines) == 0 {
		return apperr.Validation("lines must contain at least one line")
	}
	if len(input.Notes) > maxNotesLength {
		return apperr.Validation("notes must be at most 5000 characters")
	}
	for i, l := range input.Lines {
		if strings.TrimSpace(l.ItemID) == "" {
			return apperr.Validation(fmt.Sprintf("lines[%d].itemId is required", i))
		}
		if !model.IsStorable(l.Qty) || !l.Qty.IsPositive() {
			return apperr.Validation(fmt.Sprintf("lines[%d].qty must be a positive whole number of at most 38 digits", i))
		}
		if !model.IsStorable(l.UnitPriceMinor) || l.UnitPriceMinor.IsNegative() {
			return apperr.Validation(fmt.Sprintf("lines[%d].unitPriceMinor must be a non-negative whole number of at most 38 digits", i))
		}
	}
	for _, l := range input.Lines {
		if !l.UnitPriceMinor.IsZero() {
			return apperr.BadRequest("pricing_not_supported_yet", "pricing is not supported yet")
		}
	}
	return nil
}

func requireTenantItems(ctx context.Context, tx store.Tx, tenantID string, lines []model.InvoiceLine) error {
	seen := make(map[string]bool, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if !seen[l.ItemID] {
			seen[l.ItemID] = true
			ids = append(ids, l.ItemID)
		}
	}
	items, err := tx.Items().FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return err
	}
	if len(items) != len(ids) {
		return apperr.BadRequest("bad_request", "one or more itemId are invalid for this tenant")
	}
	return nil
}

// IssueFromSalesOrder mirrors a confirmed order's lines into a qty-only
// invoice. Repeated calls return the invoice issued first.
func (uc *invoiceUseCase) IssueFromSalesOrder(ctx context.Context, actor model.Actor, salesOrderID string) (result *dto.IssueResult, err error) {
	ctx, span := tracing.Start(ctx, "invoice.IssueFromSalesOrder", actor.TenantID)
	defer func() { tracing.End(span, err) }()

	result, err = uc.issue(ctx, actor, salesOrderID)
	if errors.Is(err, invoice.ErrSalesOrderInvoiced) {
		// Another transaction invoiced the order after our read; the failed
		// insert aborted ours, so read the winner in a fresh one.
		result, err = uc.existingInvoice(ctx, actor, salesOrderID)
	}
	if err != nil {
		return nil, err
	}

	if result.Created {
		uc.logger.Info("invoice issued",
			zap.String("tenant_id", actor.TenantID),
			zap.String("sales_order_id", salesOrderID),
			zap.String("invoice_id", result.Invoice.ID),
		)
	}
	return result, nil
}

func (uc *invoiceUseCase) existingInvoice(ctx context.Context, actor model.Actor, salesOrderID string) (*dto.IssueResult, error) {
	var existing *model.Invoice
	err := uc.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		existing, err = tx.Invoices().FindBySalesOrder(ctx, actor.TenantID, salesOrderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperr.Retryable("sales order invoice changed concurrently")
	}
	return &dto.IssueResult{Invoice: existing, Created: false}, nil
}

func (uc *invoiceUseCase) issue(ctx context.Context, actor model.Actor, salesOrderID string) (result *dto.IssueResult, err error) {
	err = uc.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Lock(ctx, actor.TenantID, salesOrderID); err != nil {
			return err
		}

		existing, err := tx.Invoices().FindBySalesOrder(ctx, actor.TenantID, salesOrderID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = &dto.IssueResult{Invoice: existing, Created: false}
			return nil
		}

		so, err := tx.SalesOrders().FindByID(ctx, actor.TenantID, salesOrderID)
		if err != nil {
			return err
		}
		if so == nil {
			return apperr.NotFound("not_found")
		}
		if so.Status != model.SalesOrderConfirmed {
			return apperr.Conflict("sales order must be CONFIRMED")
		}

		inv := &model.Invoice{
			ID:           uuid.New().String(),
			TenantID:     actor.TenantID,
			SalesOrderID: &so.ID,
			Status:       invoice.ComputeStatus(decimal.Zero, decimal.Zero),
			TotalMinor:   decimal.Zero,
			PaidMinor:    decimal.Zero,
			CreatedAt:    time.Now().UTC(),
			Payments:     []model.Payment{},
		}
		inv.Lines = make([]model.InvoiceLine, len(so.Lines))
		for i, l := range so.Lines {
			inv.Lines[i] = model.InvoiceLine{
				ID:             uuid.New().String(),
				TenantID:       actor.TenantID,
				InvoiceID:      inv.ID,
				LineNo:         i + 1,
				ItemID:         l.ItemID,
				Qty:            l.Qty,
				UnitPriceMinor: decimal.Zero,
				LineTotalMinor: decimal.Zero,
			}
		}

		if err := tx.Invoices().Create(ctx, inv); err != nil {
			return err
		}
		if err := tx.Audit().Append(ctx, audit.NewEvent(actor, audit.ActionInvoiceIssue, audit.EntityInvoice, inv.ID,
			map[string]any{"salesOrderId": so.ID, "totalMinor": inv.TotalMinor.String()})); err != nil {
			return err
		}

		result = &dto.IssueResult{Invoice: inv, Created: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *invoiceUseCase) GetInvoice(ctx context.Context, actor model.Actor, id string) (*model.Invoice, error) {
	var inv *model.Invoice
	err := uc.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		inv, err = tx.Invoices().FindByID(ctx, actor.TenantID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, apperr.NotFound("not_found")
	}
	return inv, nil
}

func (uc *invoiceUseCase) ListPayments(ctx context.Context, actor model.Actor, invoiceID string) ([]model.Payment, error) {
	var payments []model.Payment
	err := uc.store.WithTx(ctx, func(tx store.Tx) error {
		inv, err := tx.Invoices().FindByID(ctx, actor.TenantID, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return apperr.NotFound("not_found")
		}
		payments, err = tx.Invoices().ListPayments(ctx, actor.TenantID, inv.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []model.Payment{}
	}
	return payments, nil
}

// AddPayment records a payment and moves the invoice's paid amount and
// status. Payments on the same invoice run one at a time.
func (uc *invoiceUseCase) AddPayment(ctx context.Context, actor model.Actor, invoiceID string, input *dto.AddPaymentInput) (result *dto.PaymentResult, err error) {
	ctx, span := tracing.Start(ctx, "invoice.AddPayment", actor.TenantID)
	defer func() { tracing.End(span, err) }()

	if err := validatePayment(input); err != nil {
		return nil, err
	}
	method := strings.TrimSpace(input.Method)
	if method == "" {
		method = dto.DefaultPaymentMethod
	}

	err = uc.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Lock(ctx, actor.TenantID, invoiceID); err != nil {
			return err
		}

		inv, err := tx.Invoices().FindByID(ctx, actor.TenantID, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return apperr.NotFound("not_found")
		}
		if inv.Status == model.InvoiceVoid {
			return apperr.Conflict("invoice is void")
		}
		if inv.TotalMinor.IsZero() {
			return apperr.Conflict("invoice has no monetary total")
		}

		nextPaid := inv.PaidMinor.Add(input.AmountMinor)
		if nextPaid.GreaterThan(inv.TotalMinor) {
			return apperr.BadRequest("bad_request", "payment exceeds invoice total")
		}

		payment := model.Payment{
			ID:          uuid.New().String(),
			TenantID:    actor.TenantID,
			InvoiceID:   inv.ID,
			AmountMinor: input.AmountMinor,
			Method:      method,
			Reference:   optional(input.Reference),
			Note:        optional(input.Note),
			ActorUserID: actor.UserID,
			CreatedAt:   time.Now().UTC(),
		}
		if err := tx.Invoices().CreatePayment(ctx, &payment); err != nil {
			return err
		}

		inv.PaidMinor = nextPaid
		inv.Status = invoice.ComputeStatus(inv.TotalMinor, nextPaid)
		if err := tx.Invoices().UpdateSettlement(ctx, inv); err != nil {
			return err
		}
		inv.Payments = append(inv.Payments, payment)

		if err := tx.Audit().Append(ctx, audit.NewEvent(actor, audit.ActionInvoicePaymentAdded, audit.EntityInvoice, inv.ID,
			map[string]any{
				"amountMinor": input.AmountMinor.String(),
				"paidMinor":   nextPaid.String(),
				"status":      string(inv.Status),
			})); err != nil {
			return err
		}

		result = &dto.PaymentResult{Payment: payment, Invoice: *inv}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validatePayment(input *dto.AddPaymentInput) error {
	switch {
	case !model.IsStorable(input.AmountMinor) || !input.AmountMinor.IsPositive():
		return apperr.Validation("amountMinor must be a positive whole number of at most 38 digits")
	case len(input.Method) > maxMethodLength:
		return apperr.Validation("method must be at most 50 characters")
	case len(input.Reference) > maxReferenceLength:
		return apperr.Validation("reference must be at most 100 characters")
	case len(input.Note) > maxNoteLength:
		return apperr.Validation("note must be at most 500 characters")
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

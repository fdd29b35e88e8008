package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/audit"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/fekuna/omnipos-ledger-service/internal/salesorder"
	"github.com/fekuna/omnipos-ledger-service/internal/salesorder/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/store"
	"github.com/fekuna/omnipos-ledger-service/internal/tracing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxNotesLength = 5000

type salesOrderUseCase struct {
	store  store.Store
	logger logger.ZapLogger
}

func NewSalesOrderUseCase(s store.Store, log logger.ZapLogger) salesorder.UseCase {
	return &salesOrderUseCase{
		store:  s,
		logger: log,
	}
}

func (uc *salesOrderUseCase) CreateSalesOrder(ctx context.Context, actor model.Actor, input *dto.CreateSalesOrderInput) (so *model.SalesOrder, err error) {
	ctx, span := tracing.Start(ctx, "salesorder.CreateSalesOrder", actor.TenantID)
	defer func() { tracing.End(span, err) }()

	if len(input.Lines) == 0 {
		return nil, apperr.Validation("lines must contain at least one line")
	}
	notes := strings.TrimSpace(input.Notes)
	if len(notes) > maxNotesLength {
		return nil, apperr.Validation("notes must be at most 5000 characters")
	}
	for i, l := range input.Lines {
		if strings.TrimSpace(l.ItemID) == "" {
			return nil, apperr.Validation(fmt.Sprintf("lines[%d].itemId is required", i))
		}
		if !model.IsStorable(l.Qty) || !l.Qty.IsPositive() {
			return nil, apperr.Validation(fmt.Sprintf("lines[%d].qty must be a positive whole number of at most 38 digits", i))
		}
	}

	now := time.Now().UTC()
	so = &model.SalesOrder{
		ID:        uuid.New().String(),
		TenantID:  actor.TenantID,
		Status:    model.SalesOrderDraft,
		CreatedAt: now,
	}
	if notes != "" {
		so.Notes = &notes
	}
	so.Lines = make([]model.SalesOrderLine, len(input.Lines))
	for i, l := range input.Lines {
		so.Lines[i] = model.SalesOrderLine{
			ID:           uuid.New().String(),
			TenantID:     actor.TenantID,
			SalesOrderID: so.ID,
			LineNo:       i + 1,
			ItemID:       l.ItemID,
			Qty:          l.Qty,
		}
	}

	err = uc.store.WithTx(ctx, func(tx store.Tx) error {
		if err := requireTenantItems(ctx, tx, actor.TenantID, so.Lines); err != nil {
			return err
		}
		if err := tx.SalesOrders().Create(ctx, so); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, audit.NewEvent(actor, audit.ActionSalesOrderCreate, audit.EntitySalesOrder, so.ID,
			map[string]any{"linesCount": len(so.Lines)}))
	})
	if err != nil {
		return nil, err
	}
	return so, nil
}

func requireTenantItems(ctx context.Context, tx store.Tx, tenantID string, lines []model.SalesOrderLine) error {
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

func (uc *salesOrderUseCase) GetSalesOrder(ctx context.Context, actor model.Actor, id string) (*model.SalesOrder, error) {
	var so *model.SalesOrder
	err := uc.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		so, err = tx.SalesOrders().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if so == nil {
			return apperr.NotFound("not_found")
		}
		orders := []model.SalesOrder{*so}
		if err := annotateReservations(ctx, tx, actor.TenantID, orders); err != nil {
			return err
		}
		so = &orders[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return so, nil
}

func (uc *salesOrderUseCase) ListSalesOrders(ctx context.Context, actor model.Actor, limit int) ([]model.SalesOrder, error) {
	switch {
	case limit <= 0:
		limit = dto.DefaultListLimit
	case limit > dto.MaxListLimit:
		limit = dto.MaxListLimit
	}

	var orders []model.SalesOrder
	err := uc.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		orders, err = tx.SalesOrders().FindAll(ctx, actor.TenantID, limit)
		if err != nil {
			return err
		}
		return annotateReservations(ctx, tx, actor.TenantID, orders)
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// annotateReservations fills each line's reserved quantity (sum of ACTIVE
// reservations) and reservation status (ACTIVE while any is active, else
// CANCELLED, else empty).
func annotateReservations(ctx context.Context, tx store.Tx, tenantID string, orders []model.SalesOrder) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	for i, so := range orders {
		ids[i] = so.ID
	}
	reservations, err := tx.SalesOrders().ListReservations(ctx, tenantID, ids)
	if err != nil {
		return err
	}

	byLine := make(map[string][]model.InventoryReservation, len(reservations))
	for _, r := range reservations {
		byLine[r.SalesOrderLineID] = append(byLine[r.SalesOrderLineID], r)
	}

	for i := range orders {
		for j := range orders[i].Lines {
			line := &orders[i].Lines[j]
			line.ReservedQty = decimal.Zero
			line.ReservationStatus = ""
			for _, r := range byLine[line.ID] {
				switch r.Status {
				case model.ReservationActive:
					line.ReservedQty = line.ReservedQty.Add(r.Qty)
					line.ReservationStatus = model.ReservationActive
				case model.ReservationCancelled:
					if line.ReservationStatus == "" {
						line.ReservationStatus = model.ReservationCancelled
					}
				}
			}
		}
	}
	return nil
}

// Confirm reserves stock for every stock-tracked line. All lines are
// validated against availability before any reservation is written.
func (uc *salesOrderUseCase) Confirm(ctx context.Context, actor model.Actor, id string) (so *model.SalesOrder, err error) {
	ctx, span := tracing.Start(ctx, "salesorder.Confirm", actor.TenantID)
	defer func() { tracing.End(span, err) }()

	alreadyConfirmed := false
	err = uc.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Lock(ctx, actor.TenantID, id); err != nil {
			return err
		}

		so, err = tx.SalesOrders().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if so == nil {
			return apperr.NotFound("not_found")
		}
		switch so.Status {
		case model.SalesOrderCancelled:
			return apperr.Conflict("sales order is cancelled")
		case model.SalesOrderConfirmed:
			alreadyConfirmed = true
			return nil
		}

		setting, err := tx.Settings().GetOrCreate(ctx, actor.TenantID)
		if err != nil {
			return err
		}

		stockLines, err := stockTrackedLines(ctx, tx, actor.TenantID, so.Lines)
		if err != nil {
			return err
		}

		// Validate: one locked balance read per item, in item id order.
		demand := map[string]decimal.Decimal{}
		for _, l := range stockLines {
			demand[l.ItemID] = demand[l.ItemID].Add(l.Qty)
		}
		itemIDs := make([]string, 0, len(demand))
		for itemID := range demand {
			itemIDs = append(itemIDs, itemID)
		}
		sort.Strings(itemIDs)

		for _, itemID := range itemIDs {
			bal, err := tx.Inventory().GetBalanceForUpdate(ctx, actor.TenantID, itemID)
			if err != nil {
				return err
			}
			if bal == nil {
				return apperr.Invariant("inventory_balance_missing")
			}
			if !setting.AllowNegativeStock && bal.QtyAvailable().LessThan(demand[itemID]) {
				return apperr.BadRequest("bad_request", "insufficient available stock for item "+itemID)
			}
		}

		// Apply
		now := time.Now().UTC()
		for _, l := range stockLines {
			if err := tx.Inventory().AddReserved(ctx, actor.TenantID, l.ItemID, l.Qty); err != nil {
				return err
			}
			if err := tx.SalesOrders().CreateReservation(ctx, &model.InventoryReservation{
				ID:               uuid.New().String(),
				TenantID:         actor.TenantID,
				SalesOrderID:     so.ID,
				SalesOrderLineID: l.ID,
				ItemID:           l.ItemID,
				Qty:              l.Qty,
				Status:           model.ReservationActive,
				CreatedAt:        now,
			}); err != nil {
				return err
			}
		}

		so.Status = model.SalesOrderConfirmed
		so.ConfirmedAt = &now
		if err := tx.SalesOrders().UpdateStatus(ctx, so); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, audit.NewEvent(actor, audit.ActionSalesOrderConfirm, audit.EntitySalesOrder, so.ID, nil))
	})
	if err != nil {
		return nil, err
	}

	if alreadyConfirmed {
		uc.logger.Debug("sales order already confirmed", zap.String("tenant_id", actor.TenantID), zap.String("sales_order_id", id))
	}
	return so, nil
}

func stockTrackedLines(ctx context.Context, tx store.Tx, tenantID string, lines []model.SalesOrderLine) ([]model.SalesOrderLine, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ItemID)
	}
	items, err := tx.Items().FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	isStock := make(map[string]bool, len(items))
	for _, it := range items {
		isStock[it.ID] = it.IsStock
	}

	out := make([]model.SalesOrderLine, 0, len(lines))
	for _, l := range lines {
		if isStock[l.ItemID] {
			out = append(out, l)
		}
	}
	return out, nil
}

// Cancel releases every active reservation of a confirmed order. A DRAFT
// order is cancelled without touching stock.
func (uc *salesOrderUseCase) Cancel(ctx context.Context, actor model.Actor, id string) (so *model.SalesOrder, err error) {
	ctx, span := tracing.Start(ctx, "salesorder.Cancel", actor.TenantID)
	defer func() { tracing.End(span, err) }()

	err = uc.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Lock(ctx, actor.TenantID, id); err != nil {
			return err
		}

		so, err = tx.SalesOrders().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if so == nil {
			return apperr.NotFound("not_found")
		}
		if so.Status == model.SalesOrderCancelled {
			return apperr.Conflict("sales order already cancelled")
		}

		now := time.Now().UTC()
		if so.Status == model.SalesOrderConfirmed {
			if err := releaseReservations(ctx, tx, actor.TenantID, so.ID, now); err != nil {
				return err
			}
		}

		so.Status = model.SalesOrderCancelled
		so.CancelledAt = &now
		if err := tx.SalesOrders().UpdateStatus(ctx, so); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, audit.NewEvent(actor, audit.ActionSalesOrderCancel, audit.EntitySalesOrder, so.ID, nil))
	})
	if err != nil {
		return nil, err
	}
	return so, nil
}

func releaseReservations(ctx context.Context, tx store.Tx, tenantID, salesOrderID string, at time.Time) error {
	reservations, err := tx.SalesOrders().ListReservations(ctx, tenantID, []string{salesOrderID})
	if err != nil {
		return err
	}

	release := map[string]decimal.Decimal{}
	for _, r := range reservations {
		if r.Status == model.ReservationActive {
			release[r.ItemID] = release[r.ItemID].Add(r.Qty)
		}
	}
	itemIDs := make([]string, 0, len(release))
	for itemID := range release {
		itemIDs = append(itemIDs, itemID)
	}
	sort.Strings(itemIDs)

	for _, itemID := range itemIDs {
		bal, err := tx.Inventory().GetBalanceForUpdate(ctx, tenantID, itemID)
		if err != nil {
			return err
		}
		if bal == nil {
			return apperr.Invariant("inventory_balance_missing")
		}
		if bal.QtyReserved.LessThan(release[itemID]) {
			return apperr.Invariant("reserved_qty_underflow")
		}
		if err := tx.Inventory().AddReserved(ctx, tenantID, itemID, release[itemID].Neg()); err != nil {
			return err
		}
	}

	_, err = tx.SalesOrders().CancelActiveReservations(ctx, tenantID, salesOrderID, at)
	return err
}

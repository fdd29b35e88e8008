package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/audit"
	"github.com/fekuna/omnipos-ledger-service/internal/inventory"
	"github.com/fekuna/omnipos-ledger-service/internal/inventory/dto"
	itemusecase "github.com/fekuna/omnipos-ledger-service/internal/item/usecase"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/fekuna/omnipos-ledger-service/internal/store"
	"github.com/fekuna/omnipos-ledger-service/internal/tracing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxNoteLength = 500

type inventoryUseCase struct {
	store  store.Store
	cache  itemusecase.ListCache
	logger logger.ZapLogger
}

// NewInventoryUseCase builds the ledger. cache is the item listing cache to
// invalidate after balances move; it may be nil.
func NewInventoryUseCase(s store.Store, cache itemusecase.ListCache, log logger.ZapLogger) inventory.UseCase {
	return &inventoryUseCase{
		store:  s,
		cache:  cache,
		logger: log,
	}
}

func (uc *inventoryUseCase) ApplyAdjustment(ctx context.Context, actor model.Actor, input *dto.AdjustInventoryInput) (result *dto.AdjustmentResult, err error) {
	ctx, span := tracing.Start(ctx, "inventory.ApplyAdjustment", actor.TenantID)
	defer func() { tracing.End(span, err) }()

	if err := validateAdjustment(input); err != nil {
		return nil, err
	}

	err = uc.store.WithTx(ctx, func(tx store.Tx) error {
		// 1. Policy
		setting, err := tx.Settings().GetOrCreate(ctx, actor.TenantID)
		if err != nil {
			return err
		}

		// 2. Item
		it, err := tx.Items().FindByID(ctx, actor.TenantID, input.ItemID)
		if err != nil {
			return err
		}
		if it == nil {
			return apperr.NotFound("item_not_found")
		}
		if !it.IsStock {
			return apperr.BadRequest("item_is_not_stock_tracked", "item is not stock tracked")
		}

		// 3. Balance, locked until commit
		bal, err := tx.Inventory().GetBalanceForUpdate(ctx, actor.TenantID, it.ID)
		if err != nil {
			return err
		}
		if bal == nil {
			return apperr.Invariant("inventory_balance_missing")
		}

		// 4. Quantity
		newQty := bal.QtyOnHand.Add(input.QtyDelta)
		if !setting.AllowNegativeStock && newQty.IsNegative() {
			return apperr.BadRequest("negative_stock_not_allowed", "negative stock is not allowed")
		}

		// 5. Cost; only receipts move the average
		newAvg := bal.AvgCostMinor
		if input.QtyDelta.IsPositive() {
			newAvg = inventory.WeightedAverage(bal.QtyOnHand, bal.AvgCostMinor, input.QtyDelta, *input.UnitCostMinor)
		}

		now := time.Now().UTC()
		bal.QtyOnHand = newQty
		bal.AvgCostMinor = newAvg
		bal.UpdatedAt = now
		if err := tx.Inventory().UpdateOnHand(ctx, bal); err != nil {
			return err
		}

		// 6. Movement and audit
		movement := &model.InventoryMovement{
			ID:            uuid.New().String(),
			TenantID:      actor.TenantID,
			ItemID:        it.ID,
			Type:          model.MovementTypeAdjustment,
			QtyDelta:      input.QtyDelta,
			UnitCostMinor: input.UnitCostMinor,
			Note:          optional(input.Note),
			ActorUserID:   actor.UserID,
			CreatedAt:     now,
		}
		if err := tx.Inventory().LogMovement(ctx, movement); err != nil {
			return err
		}

		if err := tx.Audit().Append(ctx, audit.NewEvent(actor, audit.ActionInventoryAdjust, audit.EntityInventoryMovement, movement.ID,
			map[string]any{"itemId": it.ID, "qtyDelta": input.QtyDelta.String()})); err != nil {
			return err
		}

		result = &dto.AdjustmentResult{Balance: *bal, MovementID: movement.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Debug("inventory adjusted",
		zap.String("tenant_id", actor.TenantID),
		zap.String("item_id", input.ItemID),
		zap.String("qty_delta", input.QtyDelta.String()),
	)
	// The movement is committed; a cancelled caller must not leave stale listings.
	itemusecase.InvalidateTenant(context.WithoutCancel(ctx), uc.cache, uc.logger, actor.TenantID)

	return result, nil
}

func validateAdjustment(input *dto.AdjustInventoryInput) error {
	if strings.TrimSpace(input.ItemID) == "" {
		return apperr.Validation("itemId is required")
	}
	if !model.IsStorable(input.QtyDelta) {
		return apperr.Validation("qtyDelta must be a whole number of at most 38 digits")
	}
	if input.QtyDelta.IsZero() {
		return apperr.BadRequest("qtyDelta_must_not_be_zero", "qtyDelta must not be zero")
	}
	if input.UnitCostMinor != nil && !model.IsStorable(*input.UnitCostMinor) {
		return apperr.Validation("unitCostMinor must be a whole number of at most 38 digits")
	}
	if input.QtyDelta.IsPositive() && (input.UnitCostMinor == nil || input.UnitCostMinor.IsNegative()) {
		return apperr.BadRequest("unitCostMinor_required_for_inbound", "unitCostMinor is required for inbound adjustments")
	}
	if len(input.Note) > maxNoteLength {
		return apperr.Validation("note must be at most 500 characters")
	}
	return nil
}

func (uc *inventoryUseCase) GetBalance(ctx context.Context, actor model.Actor, itemID string) (*model.InventoryBalance, error) {
	var bal *model.InventoryBalance
	err := uc.store.WithTx(ctx, func(tx store.Tx) error {
		it, err := tx.Items().FindByID(ctx, actor.TenantID, itemID)
		if err != nil {
			return err
		}
		if it == nil {
			return apperr.NotFound("item_not_found")
		}
		bal, err = tx.Inventory().GetBalance(ctx, actor.TenantID, it.ID)
		if err != nil {
			return err
		}
		if bal == nil {
			return apperr.NotFound("not_found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bal, nil
}

func (uc *inventoryUseCase) GetAvailability(ctx context.Context, actor model.Actor, itemID string) (*dto.Availability, error) {
	var bal *model.InventoryBalance
	err := uc.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		bal, err = tx.Inventory().GetBalance(ctx, actor.TenantID, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return nil, apperr.NotFound("not_found")
	}

	return &dto.Availability{
		ItemID:       itemID,
		QtyOnHand:    bal.QtyOnHand.String(),
		QtyReserved:  bal.QtyReserved.String(),
		QtyAvailable: bal.QtyAvailable().String(),
	}, nil
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context, actor model.Actor, itemID string, limit int) ([]model.InventoryMovement, error) {
	var movements []model.InventoryMovement
	err := uc.store.WithTx(ctx, func(tx store.Tx) error {
		it, err := tx.Items().FindByID(ctx, actor.TenantID, itemID)
		if err != nil {
			return err
		}
		if it == nil {
			return apperr.NotFound("item_not_found")
		}
		movements, err = tx.Inventory().ListMovements(ctx, &dto.MovementFilters{
			TenantID: actor.TenantID,
			ItemID:   it.ID,
			Limit:    dto.ClampLimit(limit),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return movements, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/audit"
	"github.com/fekuna/omnipos-ledger-service/internal/cache"
	"github.com/fekuna/omnipos-ledger-service/internal/item"
	"github.com/fekuna/omnipos-ledger-service/internal/item/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/fekuna/omnipos-ledger-service/internal/store"
	"github.com/fekuna/omnipos-ledger-service/internal/tracing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	listCacheNamespace = "items:list"
	listCacheTTL       = 5 * time.Minute

	maxSKULength  = 64
	maxNameLength = 200
)

// ListCache stores item listing pages per tenant.
type ListCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// SearchIndex is the full-text item index used for queried listings.
type SearchIndex interface {
	IndexItem(ctx context.Context, it *model.Item) error
	SearchItems(ctx context.Context, filters *dto.ItemFilters) ([]string, int, error)
}

type itemUseCase struct {
	store  store.Store
	cache  ListCache
	search SearchIndex
	logger logger.ZapLogger
}

// NewItemUseCase wires the catalogue. cache and search may be nil.
func NewItemUseCase(s store.Store, c ListCache, idx SearchIndex, log logger.ZapLogger) item.UseCase {
	return &itemUseCase{
		store:  s,
		cache:  c,
		search: idx,
		logger: log,
	}
}

func (uc *itemUseCase) CreateItem(ctx context.Context, actor model.Actor, input *dto.CreateItemInput) (it *model.Item, err error) {
	ctx, span := tracing.Start(ctx, "item.CreateItem", actor.TenantID)
	defer func() { tracing.End(span, err) }()

	sku := strings.TrimSpace(input.SKU)
	nameEn := strings.TrimSpace(input.NameEn)
	switch {
	case sku == "" || len(sku) > maxSKULength:
		return nil, apperr.Validation("sku must be 1-64 characters")
	case nameEn == "" || len(nameEn) > maxNameLength:
		return nil, apperr.Validation("nameEn must be 1-200 characters")
	case len(input.NameAr) > maxNameLength:
		return nil, apperr.Validation("nameAr must be at most 200 characters")
	}

	isStock := true
	if input.IsStock != nil {
		isStock = *input.IsStock
	}
	var nameAr *string
	if trimmed := strings.TrimSpace(input.NameAr); trimmed != "" {
		nameAr = &trimmed
	}

	now := time.Now().UTC()
	it = &model.Item{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		TenantID:  actor.TenantID,
		SKU:       sku,
		NameEn:    nameEn,
		NameAr:    nameAr,
		IsStock:   isStock,
	}

	err = uc.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Items().Create(ctx, it); err != nil {
			if errors.Is(err, item.ErrDuplicateSKU) {
				return apperr.Duplicate("sku_already_exists", "sku already exists").Wrap(err)
			}
			return err
		}

		// Stock items get their single balance row up front.
		if it.IsStock {
			if err := tx.Inventory().CreateBalance(ctx, &model.InventoryBalance{
				ID:           uuid.New().String(),
				TenantID:     actor.TenantID,
				ItemID:       it.ID,
				QtyOnHand:    decimal.Zero,
				QtyReserved:  decimal.Zero,
				AvgCostMinor: decimal.Zero,
				UpdatedAt:    now,
			}); err != nil {
				return err
			}
		}

		return tx.Audit().Append(ctx, audit.NewEvent(actor, audit.ActionItemCreate, audit.EntityItem, it.ID,
			map[string]any{"sku": it.SKU}))
	})
	if err != nil {
		return nil, err
	}

	// Invalidate Cache
	go uc.invalidateListCache(context.Background(), actor.TenantID)
	// Sync to Elastic
	go uc.syncToSearch(context.Background(), it)

	return it, nil
}

func (uc *itemUseCase) syncToSearch(ctx context.Context, it *model.Item) {
	if uc.search == nil {
		return
	}
	if err := uc.search.IndexItem(ctx, it); err != nil {
		uc.logger.Error("failed to index item", zap.String("item_id", it.ID), zap.Error(err))
	}
}

func (uc *itemUseCase) invalidateListCache(ctx context.Context, tenantID string) {
	InvalidateTenant(ctx, uc.cache, uc.logger, tenantID)
}

func (uc *itemUseCase) ListItems(ctx context.Context, actor model.Actor, filters *dto.ItemFilters) (page *dto.ItemPage, err error) {
	ctx, span := tracing.Start(ctx, "item.ListItems", actor.TenantID)
	defer func() { tracing.End(span, err) }()

	f := *filters
	f.TenantID = actor.TenantID
	f.Query = strings.TrimSpace(f.Query)
	f.Normalize()

	// 1. Cache
	cacheKey := ""
	if uc.cache != nil {
		if key, keyErr := cache.Key(listCacheNamespace, f.TenantID, f); keyErr == nil {
			cacheKey = key
			var cached dto.ItemPage
			if hit, getErr := uc.cache.GetJSON(ctx, cacheKey, &cached); getErr == nil && hit {
				return &cached, nil
			} else if getErr != nil {
				uc.logger.Warn("item list cache read failed", zap.Error(getErr))
			}
		}
	}

	// 2. Search index for queried listings, 3. database otherwise or on failure
	var items []model.ItemWithBalance
	var total int
	searched := false
	if f.Query != "" && uc.search != nil {
		items, total, err = uc.listFromSearch(ctx, &f)
		if err == nil {
			searched = true
		} else {
			uc.logger.Error("item search failed, falling back to DB", zap.Error(err))
		}
	}
	if !searched {
		err = uc.store.WithTx(ctx, func(tx store.Tx) error {
			var findErr error
			items, total, findErr = tx.Items().FindAll(ctx, &f)
			return findErr
		})
		if err != nil {
			return nil, err
		}
	}

	page = &dto.ItemPage{Page: f.Page, Limit: f.Limit, Total: total, Items: items}
	if page.Items == nil {
		page.Items = []model.ItemWithBalance{}
	}

	// 4. Set Cache
	if cacheKey != "" {
		if setErr := uc.cache.SetJSON(ctx, cacheKey, page, listCacheTTL); setErr != nil {
			uc.logger.Warn("item list cache write failed", zap.Error(setErr))
		}
	}
	return page, nil
}

// listFromSearch resolves the index hits against the database so the page
// carries current rows and balances in hit order.
func (uc *itemUseCase) listFromSearch(ctx context.Context, f *dto.ItemFilters) ([]model.ItemWithBalance, int, error) {
	ids, total, err := uc.search.SearchItems(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	out := make([]model.ItemWithBalance, 0, len(ids))
	err = uc.store.WithTx(ctx, func(tx store.Tx) error {
		found, err := tx.Items().FindByIDs(ctx, f.TenantID, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]model.Item, len(found))
		for _, it := range found {
			byID[it.ID] = it
		}
		for _, id := range ids {
			it, ok := byID[id]
			if !ok {
				continue
			}
			entry := model.ItemWithBalance{Item: it}
			if it.IsStock {
				b, err := tx.Inventory().GetBalance(ctx, f.TenantID, it.ID)
				if err != nil {
					return err
				}
				if b != nil {
					entry.Balance = &model.BalanceSummary{QtyOnHand: b.QtyOnHand, AvgCostMinor: b.AvgCostMinor, UpdatedAt: b.UpdatedAt}
				}
			}
			out = append(out, entry)
		}
		return nil
	})
	return out, total, err
}

// InvalidateTenant drops the tenant's cached listings; balance changes make
// them stale.
func InvalidateTenant(ctx context.Context, c ListCache, log logger.ZapLogger, tenantID string) {
	if c == nil {
		return
	}
	if err := c.DeletePrefix(ctx, cache.TenantPrefix(listCacheNamespace, tenantID)); err != nil {
		log.Warn("failed to invalidate item list cache", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/audit"
	"github.com/fekuna/omnipos-ledger-service/internal/item/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/fekuna/omnipos-ledger-service/internal/store"
	"github.com/fekuna/omnipos-ledger-service/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tenantA = model.Actor{TenantID: "tenant-a", UserID: "user-a", IP: "10.0.0.1", UserAgent: "test"}
	tenantB = model.Actor{TenantID: "tenant-b", UserID: "user-b"}
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *fakeCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.deleted = append(c.deleted, prefix)
	return nil
}

func (c *fakeCache) deletions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deleted)
}

func (c *fakeCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type fakeSearch struct {
	mu      sync.Mutex
	indexed []string
	ids     []string
	err     error
}

func (s *fakeSearch) IndexItem(_ context.Context, it *model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed = append(s.indexed, it.ID)
	return nil
}

func (s *fakeSearch) SearchItems(_ context.Context, _ *dto.ItemFilters) ([]string, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.ids, len(s.ids), nil
}

func (s *fakeSearch) indexedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.indexed)
}

func boolPtr(b bool) *bool { return &b }

func TestCreateItem(t *testing.T) {
	st := memory.New()
	uc := NewItemUseCase(st, nil, nil, logger.NewNop())
	ctx := context.Background()

	it, err := uc.CreateItem(ctx, tenantA, &dto.CreateItemInput{SKU: "  MILK-1 ", NameEn: " Milk ", NameAr: "حليب"})
	require.NoError(t, err)
	assert.Equal(t, "MILK-1", it.SKU)
	assert.Equal(t, "Milk", it.NameEn)
	assert.True(t, it.IsStock)
	require.NotNil(t, it.NameAr)

	err = st.WithTx(ctx, func(tx store.Tx) error {
		b, err := tx.Inventory().GetBalance(ctx, tenantA.TenantID, it.ID)
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.True(t, b.QtyOnHand.IsZero())
		assert.True(t, b.AvgCostMinor.IsZero())
		return nil
	})
	require.NoError(t, err)

	events := st.AuditEvents()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionItemCreate, events[0].Action)
	assert.Equal(t, it.ID, *events[0].EntityID)
	assert.JSONEq(t, `{"sku":"MILK-1"}`, string(events[0].Meta))
}

func TestCreateNonStockItemHasNoBalance(t *testing.T) {
	st := memory.New()
	uc := NewItemUseCase(st, nil, nil, logger.NewNop())
	ctx := context.Background()

	it, err := uc.CreateItem(ctx, tenantA, &dto.CreateItemInput{SKU: "SVC", NameEn: "Delivery", IsStock: boolPtr(false)})
	require.NoError(t, err)

	page, err := uc.ListItems(ctx, tenantA, &dto.ItemFilters{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, it.ID, page.Items[0].ID)
	assert.Nil(t, page.Items[0].Balance)
}

func TestCreateItemValidation(t *testing.T) {
	uc := NewItemUseCase(memory.New(), nil, nil, logger.NewNop())

	tests := []struct {
		name  string
		input dto.CreateItemInput
	}{
		{"blank sku", dto.CreateItemInput{SKU: "  ", NameEn: "x"}},
		{"long sku", dto.CreateItemInput{SKU: strings.Repeat("s", 65), NameEn: "x"}},
		{"blank name", dto.CreateItemInput{SKU: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.CreateItem(context.Background(), tenantA, &tt.input)
			assert.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
		})
	}
}

func TestCreateItemDuplicateSKU(t *testing.T) {
	st := memory.New()
	uc := NewItemUseCase(st, nil, nil, logger.NewNop())
	ctx := context.Background()

	_, err := uc.CreateItem(ctx, tenantA, &dto.CreateItemInput{SKU: "A", NameEn: "a"})
	require.NoError(t, err)

	_, err = uc.CreateItem(ctx, tenantA, &dto.CreateItemInput{SKU: "A", NameEn: "again"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "sku_already_exists", appErr.Code)
	assert.Len(t, st.AuditEvents(), 1)

	// SKUs are unique per tenant only.
	_, err = uc.CreateItem(ctx, tenantB, &dto.CreateItemInput{SKU: "A", NameEn: "other tenant"})
	assert.NoError(t, err)
}

func TestListItemsPagingAndQuery(t *testing.T) {
	st := memory.New()
	uc := NewItemUseCase(st, nil, nil, logger.NewNop())
	ctx := context.Background()

	for _, sku := range []string{"APPLE", "BANANA", "APRICOT"} {
		_, err := uc.CreateItem(ctx, tenantA, &dto.CreateItemInput{SKU: sku, NameEn: strings.ToLower(sku)})
		require.NoError(t, err)
	}
	_, err := uc.CreateItem(ctx, tenantB, &dto.CreateItemInput{SKU: "APPLE", NameEn: "apple"})
	require.NoError(t, err)

	page, err := uc.ListItems(ctx, tenantA, &dto.ItemFilters{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)

	page, err = uc.ListItems(ctx, tenantA, &dto.ItemFilters{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	page, err = uc.ListItems(ctx, tenantA, &dto.ItemFilters{Query: "ap"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, dto.DefaultListLimit, page.Limit)
	for _, it := range page.Items {
		assert.Equal(t, tenantA.TenantID, it.TenantID)
	}

	page, err = uc.ListItems(ctx, tenantA, &dto.ItemFilters{Page: -3, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, dto.MaxListLimit, page.Limit)
}

func TestListItemsUsesCacheAndCreateInvalidates(t *testing.T) {
	st := memory.New()
	c := newFakeCache()
	uc := NewItemUseCase(st, c, nil, logger.NewNop())
	ctx := context.Background()

	_, err := uc.CreateItem(ctx, tenantA, &dto.CreateItemInput{SKU: "A", NameEn: "a"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.deletions() == 1 }, time.Second, 5*time.Millisecond)

	first, err := uc.ListItems(ctx, tenantA, &dto.ItemFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Total)
	assert.Equal(t, 1, c.size())

	_, err = uc.CreateItem(ctx, tenantA, &dto.CreateItemInput{SKU: "B", NameEn: "b"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.deletions() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, c.size())

	second, err := uc.ListItems(ctx, tenantA, &dto.ItemFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Total)
}

func TestListItemsFromSearch(t *testing.T) {
	st := memory.New()
	idx := &fakeSearch{}
	uc := NewItemUseCase(st, nil, idx, logger.NewNop())
	ctx := context.Background()

	a, err := uc.CreateItem(ctx, tenantA, &dto.CreateItemInput{SKU: "A", NameEn: "alpha"})
	require.NoError(t, err)
	b, err := uc.CreateItem(ctx, tenantA, &dto.CreateItemInput{SKU: "B", NameEn: "beta"})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return idx.indexedCount() == 2 }, time.Second, 5*time.Millisecond)

	idx.ids = []string{b.ID, "missing", a.ID}
	page, err := uc.ListItems(ctx, tenantA, &dto.ItemFilters{Query: "whatever"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, b.ID, page.Items[0].ID)
	assert.Equal(t, a.ID, page.Items[1].ID)
	assert.NotNil(t, page.Items[0].Balance)
}

func TestListItemsSearchFailureFallsBackToDB(t *testing.T) {
	st := memory.New()
	uc := NewItemUseCase(st, nil, &fakeSearch{err: errors.New("cluster down")}, logger.NewNop())
	ctx := context.Background()

	_, err := uc.CreateItem(ctx, tenantA, &dto.CreateItemInput{SKU: "MILK", NameEn: "milk"})
	require.NoError(t, err)

	page, err := uc.ListItems(ctx, tenantA, &dto.ItemFilters{Query: "mil"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

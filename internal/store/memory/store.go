package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/audit"
	"github.com/fekuna/omnipos-ledger-service/internal/inventory"
	invdto "github.com/fekuna/omnipos-ledger-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/invoice"
	"github.com/fekuna/omnipos-ledger-service/internal/item"
	itemdto "github.com/fekuna/omnipos-ledger-service/internal/item/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/fekuna/omnipos-ledger-service/internal/salesorder"
	"github.com/fekuna/omnipos-ledger-service/internal/setting"
	"github.com/fekuna/omnipos-ledger-service/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store keeps the ledger in process memory. Transactions run one at a time
// and work on a copy of the state that replaces the committed state only when
// the unit of work succeeds, which gives the same all-or-nothing and
// serialisation guarantees the postgres store gets from its locks.
type Store struct {
	mu    sync.Mutex
	state *state

	lockMu sync.Mutex
	locks  []string
}

var _ store.Store = (*Store)(nil)

type state struct {
	items        []model.Item
	balances     map[string]model.InventoryBalance // by item id
	movements    []model.InventoryMovement
	settings     map[string]model.TenantSetting // by tenant id
	orders       []model.SalesOrder
	reservations []model.InventoryReservation
	invoices     []model.Invoice
	payments     []model.Payment
	audit        []model.AuditEvent
}

func New() *Store {
	return &Store{state: &state{
		balances: map[string]model.InventoryBalance{},
		settings: map[string]model.TenantSetting{},
	}}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memTx{store: s, st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

// LockedKeys lists every advisory lock key taken so far, in order.
func (s *Store) LockedKeys() []string {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	return append([]string(nil), s.locks...)
}

// AuditEvents returns the committed audit trail.
func (s *Store) AuditEvents() []model.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditEvent(nil), s.state.audit...)
}

func (st *state) clone() *state {
	c := &state{
		items:        append([]model.Item(nil), st.items...),
		balances:     make(map[string]model.InventoryBalance, len(st.balances)),
		movements:    append([]model.InventoryMovement(nil), st.movements...),
		settings:     make(map[string]model.TenantSetting, len(st.settings)),
		orders:       make([]model.SalesOrder, len(st.orders)),
		reservations: append([]model.InventoryReservation(nil), st.reservations...),
		invoices:     make([]model.Invoice, len(st.invoices)),
		payments:     append([]model.Payment(nil), st.payments...),
		audit:        append([]model.AuditEvent(nil), st.audit...),
	}
	for k, v := range st.balances {
		c.balances[k] = v
	}
	for k, v := range st.settings {
		c.settings[k] = v
	}
	for i, o := range st.orders {
		o.Lines = append([]model.SalesOrderLine(nil), o.Lines...)
		c.orders[i] = o
	}
	for i, inv := range st.invoices {
		inv.Lines = append([]model.InvoiceLine(nil), inv.Lines...)
		inv.Payments = nil
		c.invoices[i] = inv
	}
	return c
}

type memTx struct {
	store *Store
	st    *state
}

func (t *memTx) Lock(ctx context.Context, tenantID, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.lockMu.Lock()
	t.store.locks = append(t.store.locks, tenantID+":"+key)
	t.store.lockMu.Unlock()
	return nil
}

func (t *memTx) Items() item.Repository             { return itemRepo{t.st} }
func (t *memTx) Inventory() inventory.Repository    { return inventoryRepo{t.st} }
func (t *memTx) Settings() setting.Repository       { return settingRepo{t.st} }
func (t *memTx) SalesOrders() salesorder.Repository { return salesOrderRepo{t.st} }
func (t *memTx) Invoices() invoice.Repository       { return invoiceRepo{t.st} }
func (t *memTx) Audit() audit.Repository            { return auditRepo{t.st} }

// --- items ---

type itemRepo struct{ st *state }

func (r itemRepo) Create(_ context.Context, it *model.Item) error {
	for _, existing := range r.st.items {
		if existing.TenantID == it.TenantID && existing.SKU == it.SKU {
			return item.ErrDuplicateSKU
		}
	}
	r.st.items = append(r.st.items, *it)
	return nil
}

func (r itemRepo) FindByID(_ context.Context, tenantID, id string) (*model.Item, error) {
	for _, it := range r.st.items {
		if it.TenantID == tenantID && it.ID == id {
			found := it
			return &found, nil
		}
	}
	return nil, nil
}

func (r itemRepo) FindByIDs(_ context.Context, tenantID string, ids []string) ([]model.Item, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Item
	for _, it := range r.st.items {
		if it.TenantID == tenantID && want[it.ID] {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r itemRepo) FindAll(_ context.Context, f *itemdto.ItemFilters) ([]model.ItemWithBalance, int, error) {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var matched []model.Item
	for _, it := range r.st.items {
		if it.TenantID != f.TenantID {
			continue
		}
		if q != "" && !matchesQuery(it, q) {
			continue
		}
		matched = append(matched, it)
	}
	// newest first; insertion order breaks ties
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}

	out := make([]model.ItemWithBalance, 0, end-start)
	for _, it := range matched[start:end] {
		entry := model.ItemWithBalance{Item: it}
		if b, ok := r.st.balances[it.ID]; ok && b.TenantID == it.TenantID {
			entry.Balance = &model.BalanceSummary{QtyOnHand: b.QtyOnHand, AvgCostMinor: b.AvgCostMinor, UpdatedAt: b.UpdatedAt}
		}
		out = append(out, entry)
	}
	return out, total, nil
}

func matchesQuery(it model.Item, q string) bool {
	if strings.Contains(strings.ToLower(it.SKU), q) || strings.Contains(strings.ToLower(it.NameEn), q) {
		return true
	}
	return it.NameAr != nil && strings.Contains(strings.ToLower(*it.NameAr), q)
}

// --- inventory ---

type inventoryRepo struct{ st *state }

func (r inventoryRepo) CreateBalance(_ context.Context, b *model.InventoryBalance) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	r.st.balances[b.ItemID] = *b
	return nil
}

func (r inventoryRepo) GetBalance(_ context.Context, tenantID, itemID string) (*model.InventoryBalance, error) {
	b, ok := r.st.balances[itemID]
	if !ok || b.TenantID != tenantID {
		return nil, nil
	}
	return &b, nil
}

// GetBalanceForUpdate needs no row lock here: the whole transaction already
// runs alone.
func (r inventoryRepo) GetBalanceForUpdate(ctx context.Context, tenantID, itemID string) (*model.InventoryBalance, error) {
	return r.GetBalance(ctx, tenantID, itemID)
}

func (r inventoryRepo) UpdateOnHand(_ context.Context, b *model.InventoryBalance) error {
	cur, ok := r.st.balances[b.ItemID]
	if !ok || cur.TenantID != b.TenantID {
		return nil
	}
	cur.QtyOnHand = b.QtyOnHand
	cur.AvgCostMinor = b.AvgCostMinor
	cur.UpdatedAt = b.UpdatedAt
	r.st.balances[b.ItemID] = cur
	return nil
}

func (r inventoryRepo) AddReserved(_ context.Context, tenantID, itemID string, delta decimal.Decimal) error {
	cur, ok := r.st.balances[itemID]
	if !ok || cur.TenantID != tenantID {
		return nil
	}
	cur.QtyReserved = cur.QtyReserved.Add(delta)
	cur.UpdatedAt = time.Now().UTC()
	r.st.balances[itemID] = cur
	return nil
}

func (r inventoryRepo) LogMovement(_ context.Context, m *model.InventoryMovement) error {
	r.st.movements = append(r.st.movements, *m)
	return nil
}

func (r inventoryRepo) ListMovements(_ context.Context, f *invdto.MovementFilters) ([]model.InventoryMovement, error) {
	out := []model.InventoryMovement{}
	for i := len(r.st.movements) - 1; i >= 0 && len(out) < f.Limit; i-- {
		m := r.st.movements[i]
		if m.TenantID == f.TenantID && m.ItemID == f.ItemID {
			out = append(out, m)
		}
	}
	return out, nil
}

// --- settings ---

type settingRepo struct{ st *state }

func (r settingRepo) GetOrCreate(_ context.Context, tenantID string) (*model.TenantSetting, error) {
	s, ok := r.st.settings[tenantID]
	if !ok {
		s = model.TenantSetting{TenantID: tenantID, UpdatedAt: time.Now().UTC()}
		r.st.settings[tenantID] = s
	}
	return &s, nil
}

func (r settingRepo) Upsert(_ context.Context, s *model.TenantSetting) error {
	r.st.settings[s.TenantID] = *s
	return nil
}

// --- sales orders ---

type salesOrderRepo struct{ st *state }

func (r salesOrderRepo) Create(_ context.Context, so *model.SalesOrder) error {
	c := *so
	c.Lines = append([]model.SalesOrderLine(nil), so.Lines...)
	r.st.orders = append(r.st.orders, c)
	return nil
}

func (r salesOrderRepo) FindByID(_ context.Context, tenantID, id string) (*model.SalesOrder, error) {
	for _, so := range r.st.orders {
		if so.TenantID == tenantID && so.ID == id {
			found := so
			found.Lines = append([]model.SalesOrderLine(nil), so.Lines...)
			return &found, nil
		}
	}
	return nil, nil
}

func (r salesOrderRepo) FindAll(_ context.Context, tenantID string, limit int) ([]model.SalesOrder, error) {
	out := []model.SalesOrder{}
	for i := len(r.st.orders) - 1; i >= 0 && len(out) < limit; i-- {
		so := r.st.orders[i]
		if so.TenantID == tenantID {
			so.Lines = append([]model.SalesOrderLine(nil), so.Lines...)
			out = append(out, so)
		}
	}
	return out, nil
}

func (r salesOrderRepo) UpdateStatus(_ context.Context, so *model.SalesOrder) error {
	for i := range r.st.orders {
		cur := &r.st.orders[i]
		if cur.TenantID == so.TenantID && cur.ID == so.ID {
			cur.Status = so.Status
			cur.ConfirmedAt = so.ConfirmedAt
			cur.CancelledAt = so.CancelledAt
		}
	}
	return nil
}

func (r salesOrderRepo) CreateReservation(_ context.Context, res *model.InventoryReservation) error {
	r.st.reservations = append(r.st.reservations, *res)
	return nil
}

func (r salesOrderRepo) ListReservations(_ context.Context, tenantID string, salesOrderIDs []string) ([]model.InventoryReservation, error) {
	want := make(map[string]bool, len(salesOrderIDs))
	for _, id := range salesOrderIDs {
		want[id] = true
	}
	var out []model.InventoryReservation
	for _, res := range r.st.reservations {
		if res.TenantID == tenantID && want[res.SalesOrderID] {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r salesOrderRepo) CancelActiveReservations(_ context.Context, tenantID, salesOrderID string, at time.Time) (int, error) {
	n := 0
	for i := range r.st.reservations {
		res := &r.st.reservations[i]
		if res.TenantID == tenantID && res.SalesOrderID == salesOrderID && res.Status == model.ReservationActive {
			res.Status = model.ReservationCancelled
			cancelledAt := at
			res.CancelledAt = &cancelledAt
			n++
		}
	}
	return n, nil
}

// --- invoices ---

type invoiceRepo struct{ st *state }

func (r invoiceRepo) Create(_ context.Context, inv *model.Invoice) error {
	if inv.SalesOrderID != nil {
		for _, existing := range r.st.invoices {
			if existing.TenantID == inv.TenantID && existing.SalesOrderID != nil && *existing.SalesOrderID == *inv.SalesOrderID {
				return invoice.ErrSalesOrderInvoiced
			}
		}
	}
	c := *inv
	c.Lines = append([]model.InvoiceLine(nil), inv.Lines...)
	c.Payments = nil
	r.st.invoices = append(r.st.invoices, c)
	return nil
}

func (r invoiceRepo) FindByID(ctx context.Context, tenantID, id string) (*model.Invoice, error) {
	for _, inv := range r.st.invoices {
		if inv.TenantID == tenantID && inv.ID == id {
			return r.hydrate(ctx, inv)
		}
	}
	return nil, nil
}

func (r invoiceRepo) FindBySalesOrder(ctx context.Context, tenantID, salesOrderID string) (*model.Invoice, error) {
	for _, inv := range r.st.invoices {
		if inv.TenantID == tenantID && inv.SalesOrderID != nil && *inv.SalesOrderID == salesOrderID {
			return r.hydrate(ctx, inv)
		}
	}
	return nil, nil
}

func (r invoiceRepo) hydrate(ctx context.Context, inv model.Invoice) (*model.Invoice, error) {
	inv.Lines = append([]model.InvoiceLine(nil), inv.Lines...)
	payments, err := r.ListPayments(ctx, inv.TenantID, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Payments = payments
	return &inv, nil
}

func (r invoiceRepo) UpdateSettlement(_ context.Context, inv *model.Invoice) error {
	for i := range r.st.invoices {
		cur := &r.st.invoices[i]
		if cur.TenantID == inv.TenantID && cur.ID == inv.ID {
			cur.PaidMinor = inv.PaidMinor
			cur.Status = inv.Status
		}
	}
	return nil
}

func (r invoiceRepo) CreatePayment(_ context.Context, p *model.Payment) error {
	r.st.payments = append(r.st.payments, *p)
	return nil
}

func (r invoiceRepo) ListPayments(_ context.Context, tenantID, invoiceID string) ([]model.Payment, error) {
	out := []model.Payment{}
	for _, p := range r.st.payments {
		if p.TenantID == tenantID && p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- audit ---

type auditRepo struct{ st *state }

func (r auditRepo) Append(_ context.Context, e *model.AuditEvent) error {
	r.st.audit = append(r.st.audit, *e)
	return nil
}

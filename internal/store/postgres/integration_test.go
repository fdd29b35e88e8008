package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-ledger-service/config"
	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/audit"
	"github.com/fekuna/omnipos-ledger-service/internal/inventory"
	invdto "github.com/fekuna/omnipos-ledger-service/internal/inventory/dto"
	invusecase "github.com/fekuna/omnipos-ledger-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-ledger-service/internal/invoice"
	invoicedto "github.com/fekuna/omnipos-ledger-service/internal/invoice/dto"
	invoiceusecase "github.com/fekuna/omnipos-ledger-service/internal/invoice/usecase"
	itemdto "github.com/fekuna/omnipos-ledger-service/internal/item/dto"
	itemusecase "github.com/fekuna/omnipos-ledger-service/internal/item/usecase"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/fekuna/omnipos-ledger-service/internal/salesorder"
	sodto "github.com/fekuna/omnipos-ledger-service/internal/salesorder/dto"
	sousecase "github.com/fekuna/omnipos-ledger-service/internal/salesorder/usecase"
	"github.com/fekuna/omnipos-ledger-service/internal/store"
	"github.com/fekuna/omnipos-ledger-service/internal/store/postgres"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var tenant = model.Actor{TenantID: "tenant-a", UserID: "user-a"}

type StoreIntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	db        *sqlx.DB
	store     store.Store

	inventory   inventory.UseCase
	salesOrders salesorder.UseCase
	invoices    invoice.UseCase
}

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	suite.Run(t, new(StoreIntegrationTestSuite))
}

func (s *StoreIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := tcpostgres.Run(s.ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	host, err := container.Host(s.ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(s.ctx, "5432/tcp")
	s.Require().NoError(err)

	cfg := config.PostgresConfig{
		Host:             host,
		Port:             port.Port(),
		User:             "ledger",
		Password:         "ledger",
		DBName:           "ledger",
		SSLMode:          "disable",
		MaxOpenConns:     20,
		MaxIdleConns:     5,
		ConnMaxLifetime:  60,
		ConnMaxIdleTime:  60,
		LockTimeout:      5 * time.Second,
		StatementTimeout: 10 * time.Second,
		MigrationsPath:   "../../../migrations",
	}

	m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.MigrateURL())
	s.Require().NoError(err)
	s.Require().NoError(m.Up())
	srcErr, dbErr := m.Close()
	s.Require().NoError(srcErr)
	s.Require().NoError(dbErr)

	s.db, err = postgres.NewPsqlDB(s.ctx, &cfg)
	s.Require().NoError(err)

	log := logger.NewNop()
	s.store = postgres.New(s.db, postgres.Options{LockTimeout: cfg.LockTimeout, StatementTimeout: cfg.StatementTimeout}, log)
	s.inventory = invusecase.NewInventoryUseCase(s.store, nil, log)
	s.salesOrders = sousecase.NewSalesOrderUseCase(s.store, log)
	s.invoices = invoiceusecase.NewInvoiceUseCase(s.store, log)
}

func (s *StoreIntegrationTestSuite) TearDownSuite() {
	if s.store != nil {
		s.store.Close()
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(s.ctx))
	}
}

func (s *StoreIntegrationTestSuite) SetupTest() {
	s.Require().NoError(postgres.Reset(s.ctx, s.db, logger.NewNop()))
}

func (s *StoreIntegrationTestSuite) stockItem(sku string, onHand int64) string {
	isStock := true
	it, err := itemusecase.NewItemUseCase(s.store, nil, nil, logger.NewNop()).
		CreateItem(s.ctx, tenant, &itemdto.CreateItemInput{SKU: sku, NameEn: sku, IsStock: &isStock})
	s.Require().NoError(err)
	if onHand > 0 {
		cost := decimal.NewFromInt(100)
		_, err = s.inventory.ApplyAdjustment(s.ctx, tenant, &invdto.AdjustInventoryInput{
			ItemID: it.ID, QtyDelta: decimal.NewFromInt(onHand), UnitCostMinor: &cost,
		})
		s.Require().NoError(err)
	}
	return it.ID
}

func (s *StoreIntegrationTestSuite) order(itemID string, qty int64) string {
	so, err := s.salesOrders.CreateSalesOrder(s.ctx, tenant, &sodto.CreateSalesOrderInput{
		Lines: []sodto.LineInput{{ItemID: itemID, Qty: decimal.NewFromInt(qty)}},
	})
	s.Require().NoError(err)
	return so.ID
}

func (s *StoreIntegrationTestSuite) auditCount(action string) int {
	var n int
	s.Require().NoError(s.db.GetContext(s.ctx, &n, `SELECT count(*) FROM audit_events WHERE tenant_id = $1 AND action = $2`, tenant.TenantID, action))
	return n
}

// parallel runs fn(0..n-1) at once, retrying calls that fail with a
// retryable error, and returns the final errors.
func parallel(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for attempt := 0; attempt < 5; attempt++ {
				errs[i] = fn(i)
				if !apperr.IsKind(errs[i], apperr.KindRetryable) {
					return
				}
			}
		}(i)
	}
	wg.Wait()
	return errs
}

func (s *StoreIntegrationTestSuite) TestParallelConfirmReservesOnce() {
	itemID := s.stockItem("A", 10)
	soID := s.order(itemID, 3)

	for _, err := range parallel(8, func(int) error {
		_, err := s.salesOrders.Confirm(s.ctx, tenant, soID)
		return err
	}) {
		s.NoError(err)
	}

	bal, err := s.inventory.GetBalance(s.ctx, tenant, itemID)
	s.Require().NoError(err)
	s.Equal("3", bal.QtyReserved.String())
	s.Equal(1, s.auditCount(audit.ActionSalesOrderConfirm))
}

func (s *StoreIntegrationTestSuite) TestConcurrentConfirmsNeverOversell() {
	itemID := s.stockItem("A", 5)
	ids := make([]string, 5)
	for i := range ids {
		ids[i] = s.order(itemID, 2)
	}

	confirmed, rejected := 0, 0
	for _, err := range parallel(len(ids), func(i int) error {
		_, err := s.salesOrders.Confirm(s.ctx, tenant, ids[i])
		return err
	}) {
		if err == nil {
			confirmed++
			continue
		}
		s.True(apperr.IsKind(err, apperr.KindBadRequest), "got %v", err)
		rejected++
	}
	s.Equal(2, confirmed)
	s.Equal(3, rejected)

	avail, err := s.inventory.GetAvailability(s.ctx, tenant, itemID)
	s.Require().NoError(err)
	s.Equal("4", avail.QtyReserved)
	s.Equal("1", avail.QtyAvailable)
}

func (s *StoreIntegrationTestSuite) TestConcurrentPaymentsNeverOverpay() {
	inv := &model.Invoice{
		ID:         uuid.New().String(),
		TenantID:   tenant.TenantID,
		Status:     model.InvoiceUnpaid,
		TotalMinor: decimal.NewFromInt(3000),
		PaidMinor:  decimal.Zero,
		CreatedAt:  time.Now().UTC(),
	}
	s.Require().NoError(s.store.WithTx(s.ctx, func(tx store.Tx) error {
		return tx.Invoices().Create(s.ctx, inv)
	}))

	paid := 0
	for _, err := range parallel(10, func(int) error {
		_, err := s.invoices.AddPayment(s.ctx, tenant, inv.ID, &invoicedto.AddPaymentInput{AmountMinor: decimal.NewFromInt(1000)})
		return err
	}) {
		if err == nil {
			paid++
		}
	}
	s.Equal(3, paid)

	got, err := s.invoices.GetInvoice(s.ctx, tenant, inv.ID)
	s.Require().NoError(err)
	s.Equal("3000", got.PaidMinor.String())
	s.Equal(model.InvoicePaid, got.Status)
	s.Len(got.Payments, 3)
}

func (s *StoreIntegrationTestSuite) TestIssueFromSalesOrderAgainstUniqueIndex() {
	itemID := s.stockItem("A", 10)
	soID := s.order(itemID, 4)
	_, err := s.salesOrders.Confirm(s.ctx, tenant, soID)
	s.Require().NoError(err)

	var mu sync.Mutex
	created := 0
	invoiceIDs := map[string]bool{}
	for _, err := range parallel(6, func(int) error {
		res, err := s.invoices.IssueFromSalesOrder(s.ctx, tenant, soID)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		invoiceIDs[res.Invoice.ID] = true
		if res.Created {
			created++
		}
		return nil
	}) {
		s.NoError(err)
	}
	s.Equal(1, created)
	s.Len(invoiceIDs, 1)

	// A second invoice for the order hits the unique index.
	err = s.store.WithTx(s.ctx, func(tx store.Tx) error {
		return tx.Invoices().Create(s.ctx, &model.Invoice{
			ID:           uuid.New().String(),
			TenantID:     tenant.TenantID,
			SalesOrderID: &soID,
			Status:       model.InvoiceUnpaid,
			TotalMinor:   decimal.Zero,
			PaidMinor:    decimal.Zero,
			CreatedAt:    time.Now().UTC(),
		})
	})
	s.True(errors.Is(err, invoice.ErrSalesOrderInvoiced), "got %v", err)

	_, err = s.invoices.CreateInvoice(s.ctx, tenant, &invoicedto.CreateInvoiceInput{
		SalesOrderID: soID,
		Lines:        []invoicedto.LineInput{{ItemID: itemID, Qty: decimal.NewFromInt(1)}},
	})
	s.True(apperr.IsKind(err, apperr.KindConflict), "got %v", err)
}

func (s *StoreIntegrationTestSuite) TestBalanceOverflowIsValidation() {
	itemID := s.stockItem("A", 0)
	cost := decimal.NewFromInt(1)
	qty := decimal.RequireFromString("9e37")

	_, err := s.inventory.ApplyAdjustment(s.ctx, tenant, &invdto.AdjustInventoryInput{ItemID: itemID, QtyDelta: qty, UnitCostMinor: &cost})
	s.Require().NoError(err)

	_, err = s.inventory.ApplyAdjustment(s.ctx, tenant, &invdto.AdjustInventoryInput{ItemID: itemID, QtyDelta: qty, UnitCostMinor: &cost})
	s.True(apperr.IsKind(err, apperr.KindValidation), "got %v", err)

	bal, err := s.inventory.GetBalance(s.ctx, tenant, itemID)
	s.Require().NoError(err)
	s.True(bal.QtyOnHand.Equal(qty))
}

func (s *StoreIntegrationTestSuite) TestAuditTrailIsAppendOnly() {
	s.stockItem("A", 1)
	s.Require().Positive(s.auditCount(audit.ActionInventoryAdjust))

	_, err := s.db.ExecContext(s.ctx, `UPDATE audit_events SET action = 'tampered'`)
	s.ErrorContains(err, "append-only")
	_, err = s.db.ExecContext(s.ctx, `DELETE FROM audit_events`)
	s.ErrorContains(err, "append-only")
	s.Zero(s.auditCount("tampered"))
}

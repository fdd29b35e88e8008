package server

import (
	"context"
	"net/http"
	"time"

	"github.com/fekuna/omnipos-ledger-service/config"
	"github.com/fekuna/omnipos-ledger-service/internal/auth"
	"github.com/fekuna/omnipos-ledger-service/internal/inventory"
	invH "github.com/fekuna/omnipos-ledger-service/internal/inventory/handler"
	"github.com/fekuna/omnipos-ledger-service/internal/invoice"
	invoiceH "github.com/fekuna/omnipos-ledger-service/internal/invoice/handler"
	"github.com/fekuna/omnipos-ledger-service/internal/item"
	itemH "github.com/fekuna/omnipos-ledger-service/internal/item/handler"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/metrics"
	"github.com/fekuna/omnipos-ledger-service/internal/middleware"
	"github.com/fekuna/omnipos-ledger-service/internal/salesorder"
	soH "github.com/fekuna/omnipos-ledger-service/internal/salesorder/handler"
	"github.com/fekuna/omnipos-ledger-service/internal/setting"
	settingH "github.com/fekuna/omnipos-ledger-service/internal/setting/handler"
	"github.com/fekuna/omnipos-ledger-service/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UseCases struct {
	Items       item.UseCase
	Inventory   inventory.UseCase
	Settings    setting.UseCase
	SalesOrders salesorder.UseCase
	Invoices    invoice.UseCase
}

// NewRouter assembles the HTTP API. Everything except /health and /metrics
// requires a bearer token.
func NewRouter(cfg *config.Config, st store.Store, uc UseCases, m *metrics.Metrics, log logger.ZapLogger) *gin.Engine {
	if cfg.Server.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(middleware.ErrorHandler(log, m))
	r.NoRoute(middleware.NotFound)

	r.GET("/health", health(st))
	r.GET("/metrics", gin.WrapH(m.Handler()))

	api := r.Group("/", auth.Middleware(cfg.JWT.SecretKey, log))
	settingH.NewSettingHandler(uc.Settings).Register(api)
	itemH.NewItemHandler(uc.Items, log).Register(api)
	invH.NewInventoryHandler(uc.Inventory, log).Register(api)
	soH.NewSalesOrderHandler(uc.SalesOrders, log).Register(api)
	invoiceH.NewInvoiceHandler(uc.Invoices, log).Register(api)

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func health(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// HTTPServer wraps the router with the listen address and graceful stop.
type HTTPServer struct {
	srv    *http.Server
	logger logger.ZapLogger
}

func NewHTTPServer(addr string, handler http.Handler, log logger.ZapLogger) *HTTPServer {
	return &HTTPServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: log,
	}
}

// Run blocks until the server stops; a graceful shutdown is not an error.
func (s *HTTPServer) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

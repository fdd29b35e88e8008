package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-ledger-service/config"
	"github.com/fekuna/omnipos-ledger-service/internal/cache"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/metrics"
	"github.com/fekuna/omnipos-ledger-service/internal/search"
	"github.com/fekuna/omnipos-ledger-service/internal/server"
	"github.com/fekuna/omnipos-ledger-service/internal/store"
	"github.com/fekuna/omnipos-ledger-service/internal/store/memory"
	"github.com/fekuna/omnipos-ledger-service/internal/store/postgres"
	"github.com/fekuna/omnipos-ledger-service/internal/tracing"

	invListenerPkg "github.com/fekuna/omnipos-ledger-service/internal/inventory/listener"
	invUCPkg "github.com/fekuna/omnipos-ledger-service/internal/inventory/usecase"
	invoiceUCPkg "github.com/fekuna/omnipos-ledger-service/internal/invoice/usecase"
	itemUCPkg "github.com/fekuna/omnipos-ledger-service/internal/item/usecase"
	soUCPkg "github.com/fekuna/omnipos-ledger-service/internal/salesorder/usecase"
	settingUCPkg "github.com/fekuna/omnipos-ledger-service/internal/setting/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}

	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
		logConfig.Level = cfg.Logger.Level
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize Tracing
	shutdownTracing, err := tracing.Setup(ctx, &cfg.Tracing)
	if err != nil {
		appLogger.Fatal("Could not set up tracing", zap.Error(err))
	}

	// 4. Initialize Store
	var st store.Store
	switch cfg.Store.Driver {
	case "memory":
		st = memory.New()
		appLogger.Warn("Using in-memory store, data is lost on restart")
	default:
		db, err := postgres.NewPsqlDB(ctx, &cfg.Postgres)
		if err != nil {
			appLogger.Fatal("Could not connect to database", zap.Error(err))
		}
		st = postgres.New(db, postgres.Options{
			LockTimeout:      cfg.Postgres.LockTimeout,
			StatementTimeout: cfg.Postgres.StatementTimeout,
		}, appLogger)
		appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))
	}
	defer st.Close()

	// 5. Initialize Redis
	var listCache itemUCPkg.ListCache
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			appLogger.Warn("Could not connect to Redis (item listings are not cached)", zap.Error(err))
		} else {
			defer redisClient.Close()
			listCache = redisClient
			appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// 5.5 Initialize Elasticsearch
	var searchIndex itemUCPkg.SearchIndex
	if cfg.Elastic.Enabled {
		esClient, err := search.NewClient(&cfg.Elastic)
		if err != nil {
			appLogger.Warn("Could not connect to Elasticsearch (item search falls back to the database)", zap.Error(err))
		} else {
			searchIndex = esClient
			appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	// 6. Initialize UseCases
	m := metrics.New()
	useCases := server.UseCases{
		Items:       itemUCPkg.NewItemUseCase(st, listCache, searchIndex, appLogger),
		Inventory:   invUCPkg.NewInventoryUseCase(st, listCache, appLogger),
		Settings:    settingUCPkg.NewSettingUseCase(st, appLogger),
		SalesOrders: soUCPkg.NewSalesOrderUseCase(st, appLogger),
		Invoices:    invoiceUCPkg.NewInvoiceUseCase(st, appLogger),
	}

	// 6.5 Initialize Listeners
	if cfg.Kafka.Enabled {
		reader := invListenerPkg.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.AdjustmentsTopic, cfg.Kafka.GroupID)
		invListener := invListenerPkg.NewInventoryListener(reader, cfg.Kafka.AdjustmentsTopic, useCases.Inventory, m, appLogger)
		defer invListener.Close()
		go invListener.Start(ctx)
		appLogger.Info("Started inventory listener", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.AdjustmentsTopic))
	}

	// 7. Start Servers
	router := server.NewRouter(cfg, st, useCases, m, appLogger)
	httpServer := server.NewHTTPServer(cfg.Server.HTTPPort, router, appLogger)
	grpcServer := server.NewGRPCServer(cfg.Server.GRPCPort, appLogger)

	errCh := make(chan error, 2)
	go func() { errCh <- httpServer.Run() }()
	go func() { errCh <- grpcServer.Run() }()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			appLogger.Error("server failed", zap.Error(err))
		}
	}

	appLogger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	grpcServer.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("http shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		appLogger.Warn("tracing shutdown", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

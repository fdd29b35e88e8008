package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-ledger-service/config"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/store/postgres"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = "usage: migrate up | down [steps] | version | reset"

func main() {
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	appLogger := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     cfg.Server.AppEnv == "development",
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer appLogger.Sync()

	if len(os.Args) < 2 {
		appLogger.Fatal(usage)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "up", "down", "version":
		err = runMigrations(&cfg.Postgres, cmd, os.Args[2:], appLogger)
	case "reset":
		err = reset(&cfg.Postgres, appLogger)
	default:
		appLogger.Fatal(usage, zap.String("command", cmd))
	}
	if err != nil {
		appLogger.Fatal("migrate failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func runMigrations(cfg *config.PostgresConfig, cmd string, args []string, log logger.ZapLogger) error {
	m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("create migrate: %w", err)
	}
	defer m.Close()

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		if len(args) > 0 {
			steps, convErr := strconv.Atoi(args[0])
			if convErr != nil || steps <= 0 {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			return verr
		}
		log.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("no migrations to apply", zap.String("command", cmd))
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("migrations applied", zap.String("command", cmd), zap.String("path", cfg.MigrationsPath))
	return nil
}

func reset(cfg *config.PostgresConfig, log logger.ZapLogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.NewPsqlDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return postgres.Reset(ctx, db, log)
}

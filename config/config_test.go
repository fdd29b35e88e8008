package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvDefaults(t *testing.T) {
	cfg := LoadEnv()

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "inventory.adjustments", cfg.Kafka.AdjustmentsTopic)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REQUEST_TIMEOUT_MS", "2500")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("POSTGRES_LOCK_TIMEOUT_MS", "not-a-number")

	cfg := LoadEnv()

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 2500*time.Millisecond, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 3*time.Second, cfg.Postgres.LockTimeout)
}

func TestPostgresURLs(t *testing.T) {
	pg := PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "ledger", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=ledger sslmode=disable", pg.DSN())
	assert.Equal(t, "postgres://u:p@db:5432/ledger?sslmode=disable", pg.MigrateURL())
}

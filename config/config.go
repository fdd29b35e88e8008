package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Store    StoreConfig
	Postgres PostgresConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Elastic  ElasticsearchConfig
	Tracing  TracingConfig
}

type ServerConfig struct {
	AppEnv         string
	HTTPPort       string
	GRPCPort       string
	RequestTimeout time.Duration
	CORSOrigins    []string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type StoreConfig struct {
	// Driver is "postgres" or "memory". The memory store keeps nothing across
	// restarts and is meant for local runs.
	Driver string
}

type PostgresConfig struct {
	Host             string
	Port             string
	User             string
	Password         string
	DBName           string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  int
	ConnMaxIdleTime  int
	LockTimeout      time.Duration
	StatementTimeout time.Duration
	MigrationsPath   string
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	AdjustmentsTopic string
	GroupID          string
}

type ElasticsearchConfig struct {
	Enabled   bool
	Addresses []string
	Username  string
	Password  string
}

type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:         getEnv("APP_ENV", "dev"),
			HTTPPort:       getEnv("HTTP_PORT", ":8080"),
			GRPCPort:       getEnv("GRPC_PORT", ":8082"),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT_MS", 10*time.Second),
			CORSOrigins:    getEnvSlice("CORS_ORIGIN", nil),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "postgres"),
		},
		Postgres: PostgresConfig{
			Host:             getEnv("POSTGRES_HOST", "localhost"),
			Port:             getEnv("POSTGRES_PORT", "5433"),
			User:             getEnv("POSTGRES_USER", "omnipos"),
			Password:         getEnv("POSTGRES_PASSWORD", "omnipos"),
			DBName:           getEnv("POSTGRES_DB", "omnipos_ledger"),
			SSLMode:          getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:     getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime:  getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
			LockTimeout:      getEnvDuration("POSTGRES_LOCK_TIMEOUT_MS", 3*time.Second),
			StatementTimeout: getEnvDuration("POSTGRES_STATEMENT_TIMEOUT_MS", 8*time.Second),
			MigrationsPath:   getEnv("MIGRATIONS_PATH", "migrations"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", "your-secret-key-change-this-in-prod"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled:          getEnvBool("KAFKA_ENABLED", true),
			Brokers:          getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			AdjustmentsTopic: getEnv("KAFKA_TOPIC_ADJUSTMENTS", "inventory.adjustments"),
			GroupID:          getEnv("KAFKA_GROUP_LEDGER", "ledger"),
		},
		Elastic: ElasticsearchConfig{
			Enabled:   getEnvBool("ELASTICSEARCH_ENABLED", true),
			Addresses: getEnvSlice("ELASTICSEARCH_ADDRESSES", []string{"http://localhost:9200"}),
			Username:  getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:  getEnv("ELASTICSEARCH_PASSWORD", ""),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "omnipos-ledger-service"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

// DSN builds the pgx connection string for sqlx.
func (c PostgresConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// MigrateURL is the URL form golang-migrate expects.
func (c PostgresConfig) MigrateURL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration reads a millisecond count.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return strings.Split(value, ",")
	}
	return fallback
}

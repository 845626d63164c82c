package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig aggregates runtime configuration, injected via environment
// variables with development defaults.
type AppConfig struct {
	AppEnv   string
	HTTPAddr string

	// CatalogDSN and AdminToken feed the configuration guard: both must be
	// well formed before any write is accepted.
	CatalogDSN string
	AdminToken string

	RedisAddr string
	RedisDB   int

	// Kafka cluster (comma separated), movement topic and consumer group.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Redis Stream outbox for movement events (API appends atomically, the
	// relay forwards to Kafka).
	MovementStream   string
	MovementGroup    string
	MovementConsumer string

	// Storefront browse rate limiting and list cache policy.
	BrowseRateLimit  int
	BrowseRateWindow time.Duration
	CacheTTL         time.Duration

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration
}

// Load reads and validates configuration, using defaults where unset. A
// .env file is honoured when present.
func Load() (AppConfig, error) {
	godotenv.Load()

	cfg := AppConfig{
		AppEnv:           getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		CatalogDSN:       getEnv("CATALOG_DSN", "sqlite://furnistore.db"),
		AdminToken:       getEnv("ADMIN_TOKEN", "dev-admin-token"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:          0,
		KafkaBrokers:     splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "furnistore-stock-movements"),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "furnistore-movement-consumer"),
		MovementStream:   getEnv("MOVEMENT_STREAM", "furnistore:movement_events"),
		MovementGroup:    getEnv("MOVEMENT_GROUP", "furnistore-relay-group"),
		MovementConsumer: getEnv("MOVEMENT_CONSUMER", "furnistore-relay-1"),
		BrowseRateLimit:  120,
		BrowseRateWindow: time.Minute,
		CacheTTL:         5 * time.Minute,
		RequestTimeout:   10 * time.Second,
	}

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	rateLimit, err := getEnvInt("BROWSE_RATE_LIMIT", cfg.BrowseRateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid BROWSE_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("BROWSE_RATE_LIMIT must be > 0")
	}
	cfg.BrowseRateLimit = rateLimit

	rateWindowSec, err := getEnvInt("BROWSE_RATE_WINDOW_SEC", int(cfg.BrowseRateWindow.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid BROWSE_RATE_WINDOW_SEC: %w", err)
	}
	if rateWindowSec <= 0 {
		return AppConfig{}, fmt.Errorf("BROWSE_RATE_WINDOW_SEC must be > 0")
	}
	cfg.BrowseRateWindow = time.Duration(rateWindowSec) * time.Second

	cacheTTLSec, err := getEnvInt("CACHE_TTL_SEC", int(cfg.CacheTTL.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid CACHE_TTL_SEC: %w", err)
	}
	if cacheTTLSec <= 0 {
		return AppConfig{}, fmt.Errorf("CACHE_TTL_SEC must be > 0")
	}
	cfg.CacheTTL = time.Duration(cacheTTLSec) * time.Second

	timeoutSec, err := getEnvInt("REQUEST_TIMEOUT_SEC", int(cfg.RequestTimeout.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REQUEST_TIMEOUT_SEC: %w", err)
	}
	if timeoutSec <= 0 {
		return AppConfig{}, fmt.Errorf("REQUEST_TIMEOUT_SEC must be > 0")
	}
	cfg.RequestTimeout = time.Duration(timeoutSec) * time.Second

	if len(cfg.KafkaBrokers) == 0 {
		return AppConfig{}, fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	if cfg.KafkaTopic == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_TOPIC must not be empty")
	}
	if cfg.KafkaGroupID == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_GROUP_ID must not be empty")
	}
	if cfg.MovementStream == "" {
		return AppConfig{}, fmt.Errorf("MOVEMENT_STREAM must not be empty")
	}
	if cfg.MovementGroup == "" {
		return AppConfig{}, fmt.Errorf("MOVEMENT_GROUP must not be empty")
	}
	if cfg.MovementConsumer == "" {
		return AppConfig{}, fmt.Errorf("MOVEMENT_CONSUMER must not be empty")
	}

	return cfg, nil
}

// getEnv reads a string variable, falling back when empty.
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvInt reads an integer variable, falling back when empty.
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// splitCSV parses a comma-separated string into a slice.
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

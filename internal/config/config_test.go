package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite://furnistore.db", cfg.CatalogDSN)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 120, cfg.BrowseRateLimit)
	assert.Equal(t, time.Minute, cfg.BrowseRateWindow)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CATALOG_DSN", "sqlite:///data/furnistore.db")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("BROWSE_RATE_LIMIT", "10")
	t.Setenv("REQUEST_TIMEOUT_SEC", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "sqlite:///data/furnistore.db", cfg.CatalogDSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10, cfg.BrowseRateLimit)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"REDIS_DB":            "not-a-number",
		"BROWSE_RATE_LIMIT":   "0",
		"REQUEST_TIMEOUT_SEC": "-1",
		"CACHE_TTL_SEC":       "abc",
	}

	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

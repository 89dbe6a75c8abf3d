package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.VerifyTotal)
	assert.Equal(t, "0.01", cfg.TotalTolerance.String())
	assert.Equal(t, 10, cfg.CheckoutRateLimit)
	assert.Equal(t, time.Minute, cfg.CheckoutRateWindow)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 2*time.Minute, cfg.IdempotencyInFlightTTL)
	assert.Equal(t, int64(100), cfg.FeedSize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ORDER_VERIFY_TOTAL", "false")
	t.Setenv("ORDER_TOTAL_TOLERANCE", "0.05")
	t.Setenv("CHECKOUT_RATE_WINDOW", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.VerifyTotal)
	assert.Equal(t, "0.05", cfg.TotalTolerance.String())
	assert.Equal(t, 30*time.Second, cfg.CheckoutRateWindow)
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]map[string]string{
		"missing secret":     {"JWT_SECRET": ""},
		"bad tolerance":      {"ORDER_TOTAL_TOLERANCE": "cheap"},
		"negative tolerance": {"ORDER_TOTAL_TOLERANCE": "-1"},
		"zero rate limit":    {"CHECKOUT_RATE_LIMIT": "0"},
		"zero workers":       {"NOTIFIER_WORKERS": "0"},
		"in-flight too long": {"IDEMPOTENCY_INFLIGHT_TTL": "48h"},
		"zero feed":          {"NOTIFICATION_FEED_SIZE": "0"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("REDIS_ENABLED", "yes")
	t.Setenv("DATABASE_MAX_OPEN_CONN", "not-a-number")
	t.Setenv("SCHEDULER_TICK_INTERVAL", "15m")
	t.Setenv("SCHEDULER_GENERATE_DAY", "3")
	t.Setenv("ENVIRONMENT", "Production")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, 50, cfg.DBMaxOpenConn)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.TickInterval)
	assert.Equal(t, 3, cfg.Scheduler.GenerateDayUTC)
	assert.True(t, cfg.IsProduction())
}

func TestPaymentMethodAllowed(t *testing.T) {
	cfg := DefaultPayoutConfig()

	assert.True(t, cfg.PaymentMethodAllowed(""))
	assert.True(t, cfg.PaymentMethodAllowed("Bank_Transfer"))
	assert.True(t, cfg.PaymentMethodAllowed(" e_wallet "))
	assert.False(t, cfg.PaymentMethodAllowed("cash"))
}

func TestValidatePayoutConfig(t *testing.T) {
	assert.NoError(t, validatePayoutConfig(DefaultPayoutConfig()))

	bad := DefaultPayoutConfig()
	bad.GenerateConcurrency = 0
	assert.Error(t, validatePayoutConfig(bad))

	bad = DefaultPayoutConfig()
	bad.ConflictBackoffMax = time.Millisecond
	assert.Error(t, validatePayoutConfig(bad))

	bad = DefaultPayoutConfig()
	bad.ConflictRetries = -1
	assert.Error(t, validatePayoutConfig(bad))
}

func TestNewPayoutConfigHolderFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewPayoutConfigHolder(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultPayoutConfig(), holder.Get())
}

func TestLoadReadsTelemetrySettings(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "HTTP/Protobuf")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := Load()

	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, "http/protobuf", cfg.OTLPProtocol)
	assert.Equal(t, 0.5, cfg.OtelSamplingRatio)
	assert.Equal(t, "debug", cfg.LogLevel)
}

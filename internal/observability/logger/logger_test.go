package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSamplingCoreKeepsEveryPayoutEvent(t *testing.T) {
	inner, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(newSamplingCore(inner, Config{
		SamplingInitial:    1,
		SamplingThereafter: 100,
		SamplingWindow:     time.Minute,
	})).With(zap.String("service", "revenueshare"))

	for i := 0; i < 5; i++ {
		log.Info("http_request")
		log.Info("payout.completed", zap.Int("n", i))
	}

	assert.Equal(t, 1, logs.FilterMessage("http_request").Len())
	completed := logs.FilterMessage("payout.completed").All()
	assert.Len(t, completed, 5)
	assert.Equal(t, "revenueshare", completed[4].ContextMap()["service"])
}

func TestProductionConfigRejectsUnknownLevel(t *testing.T) {
	_, err := productionConfig(Config{Level: "loud"})
	assert.Error(t, err)

	cfg, err := productionConfig(Config{Level: "debug", Format: "Console"})
	assert.NoError(t, err)
	assert.Equal(t, "console", cfg.Encoding)
	assert.Nil(t, cfg.Sampling)
}

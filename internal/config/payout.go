package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PayoutConfig holds the tunables of payout generation and completion.
// It is reloaded from payout.yml without a restart.
type PayoutConfig struct {
	AllowedPaymentMethods []string      `mapstructure:"allowedPaymentMethods"`
	ConflictRetries       int           `mapstructure:"conflictRetries"`
	ConflictBackoff       time.Duration `mapstructure:"conflictBackoff"`
	ConflictBackoffMax    time.Duration `mapstructure:"conflictBackoffMax"`
	GenerateConcurrency   int           `mapstructure:"generateConcurrency"`
	LockTTL               time.Duration `mapstructure:"lockTTL"`
}

func DefaultPayoutConfig() PayoutConfig {
	return PayoutConfig{
		AllowedPaymentMethods: []string{"bank_transfer", "e_wallet"},
		ConflictRetries:       3,
		ConflictBackoff:       50 * time.Millisecond,
		ConflictBackoffMax:    time.Second,
		GenerateConcurrency:   8,
		LockTTL:               30 * time.Second,
	}
}

// PaymentMethodAllowed reports whether method is accepted. An empty method is
// always allowed because it is optional on completion.
func (c PayoutConfig) PaymentMethodAllowed(method string) bool {
	method = strings.TrimSpace(method)
	if method == "" {
		return true
	}
	for _, allowed := range c.AllowedPaymentMethods {
		if strings.EqualFold(allowed, method) {
			return true
		}
	}
	return false
}

type PayoutConfigHolder struct {
	current atomic.Value // holds PayoutConfig
}

// NewStaticPayoutConfigHolder returns a holder that never reloads.
func NewStaticPayoutConfigHolder(cfg PayoutConfig) *PayoutConfigHolder {
	holder := &PayoutConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewPayoutConfigHolder(log *zap.Logger) (*PayoutConfigHolder, error) {
	log = log.Named("config.payout")
	v := viper.New()

	v.SetConfigName("payout")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/revenueshare/config")
	v.AddConfigPath("/etc/revenueshare")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REVENUESHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPayoutConfig()
	v.SetDefault("payout.allowedPaymentMethods", defaults.AllowedPaymentMethods)
	v.SetDefault("payout.conflictRetries", defaults.ConflictRetries)
	v.SetDefault("payout.conflictBackoff", defaults.ConflictBackoff)
	v.SetDefault("payout.conflictBackoffMax", defaults.ConflictBackoffMax)
	v.SetDefault("payout.generateConcurrency", defaults.GenerateConcurrency)
	v.SetDefault("payout.lockTTL", defaults.LockTTL)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		watch = false
	}

	var cfg PayoutConfig
	if err := v.UnmarshalKey("payout", &cfg); err != nil {
		return nil, err
	}
	if err := validatePayoutConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticPayoutConfigHolder(cfg)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PayoutConfig
		if err := v.UnmarshalKey("payout", &updated); err != nil {
			log.Warn("payout config reload failed", zap.Error(err))
			return
		}
		if err := validatePayoutConfig(updated); err != nil {
			log.Warn("invalid payout config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("payout config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PayoutConfigHolder) Get() PayoutConfig {
	return h.current.Load().(PayoutConfig)
}

func validatePayoutConfig(cfg PayoutConfig) error {
	if cfg.ConflictRetries < 0 {
		return errors.New("payout.conflictRetries cannot be negative")
	}
	if cfg.GenerateConcurrency <= 0 {
		return errors.New("payout.generateConcurrency must be positive")
	}
	if cfg.ConflictBackoff < 0 || cfg.ConflictBackoffMax < cfg.ConflictBackoff {
		return errors.New("payout.conflictBackoffMax must be >= payout.conflictBackoff")
	}
	return nil
}

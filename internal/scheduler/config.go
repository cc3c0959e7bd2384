package scheduler

import (
	"time"

	"github.com/smallbiznis/revenueshare/internal/config"
)

// Config controls how often the scheduler wakes up and when the previous
// month's payouts are generated.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	JobTimeout  time.Duration
	// GenerateDay is the UTC day of month from which the previous month is
	// considered closed for payout generation.
	GenerateDay int
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		JobTimeout:  10 * time.Minute,
		GenerateDay: 1,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.Scheduler.Enabled,
		RunInterval: cfg.Scheduler.TickInterval,
		JobTimeout:  cfg.Scheduler.JobTimeout,
		GenerateDay: cfg.Scheduler.GenerateDayUTC,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.GenerateDay < 1 || c.GenerateDay > 28 {
		c.GenerateDay = defaults.GenerateDay
	}
	return c
}

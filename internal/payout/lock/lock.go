// Package lock serializes payout generation per (provider, month) across
// processes with a Redis mutex.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/revenueshare/internal/config"
	"github.com/smallbiznis/revenueshare/internal/period"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyProviderMonth = "payout:lock:%s:%s"

// Release only deletes the key while it still holds our token, so an expired
// lock taken over by another worker is left alone.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var ErrNotConfigured = errors.New("payout lock client not configured")

type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(releaseScript),
	}
}

func Key(providerID string, month period.MonthYear) string {
	return fmt.Sprintf(keyProviderMonth, strings.TrimSpace(providerID), month)
}

// TryLock attempts to take key without waiting. The returned token is needed
// to release it.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, ErrNotConfigured
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

type ClientParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

// NewRedisClient returns nil when Redis is disabled; generation then relies on
// database row locks alone.
func NewRedisClient(p ClientParams) (*redis.Client, error) {
	if !p.Config.RedisEnabled {
		return nil, nil
	}
	addr := strings.TrimSpace(p.Config.RedisAddr)
	if addr == "" {
		return nil, errors.New("redis addr is required when redis is enabled")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(p.Config.RedisPassword),
		DB:       p.Config.RedisDB,
	})

	log := p.Log.Named("payout.lock")
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping: %w", err)
			}
			log.Info("redis lock client ready", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

package payout

import (
	"github.com/smallbiznis/revenueshare/internal/payout/lock"
	"github.com/smallbiznis/revenueshare/internal/payout/repository"
	"github.com/smallbiznis/revenueshare/internal/payout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payout.service",
	fx.Provide(lock.NewRedisClient, lock.NewLocker),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

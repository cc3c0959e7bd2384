package attribution

import (
	"github.com/smallbiznis/revenueshare/internal/attribution/directory"
	"github.com/smallbiznis/revenueshare/internal/attribution/domain"
	"github.com/smallbiznis/revenueshare/internal/attribution/repository"
	"github.com/smallbiznis/revenueshare/internal/attribution/service"
	"github.com/smallbiznis/revenueshare/internal/attribution/strategy"
	"go.uber.org/fx"
)

var Module = fx.Module("attribution.service",
	fx.Provide(
		directory.NewProviderDirectory,
		directory.NewRowContributionSource,
		fx.Annotate(strategy.NewDataPackage, fx.As(new(domain.Strategy)), fx.ResultTags(`group:"attribution.strategies"`)),
		fx.Annotate(strategy.NewSubscriptionPackage, fx.As(new(domain.Strategy)), fx.ResultTags(`group:"attribution.strategies"`)),
		fx.Annotate(strategy.NewAPIPackage, fx.As(new(domain.Strategy)), fx.ResultTags(`group:"attribution.strategies"`)),
		strategy.ProvideRegistry,
		repository.Provide,
		service.New,
	),
)

package revenueshare

import (
	"github.com/smallbiznis/revenueshare/internal/revenueshare/repository"
	"github.com/smallbiznis/revenueshare/internal/revenueshare/service"
	"go.uber.org/fx"
)

var Module = fx.Module("revenueshare.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

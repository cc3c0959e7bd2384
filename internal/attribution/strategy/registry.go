package strategy

import (
	"fmt"

	"github.com/smallbiznis/revenueshare/internal/attribution/domain"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
	"go.uber.org/fx"
)

// Registry resolves the attribution strategy of a package type.
type Registry struct {
	byType map[packagetype.Type]domain.Strategy
}

func NewRegistry(strategies ...domain.Strategy) (*Registry, error) {
	r := &Registry{byType: make(map[packagetype.Type]domain.Strategy, len(strategies))}
	for _, s := range strategies {
		if _, exists := r.byType[s.PackageType()]; exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateStrategy, s.PackageType())
		}
		r.byType[s.PackageType()] = s
	}
	return r, nil
}

func (r *Registry) For(pkg packagetype.Type) (domain.Strategy, error) {
	s, ok := r.byType[pkg]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedPackageType, pkg)
	}
	return s, nil
}

type RegistryParams struct {
	fx.In

	Strategies []domain.Strategy `group:"attribution.strategies"`
}

func ProvideRegistry(p RegistryParams) (*Registry, error) {
	return NewRegistry(p.Strategies...)
}

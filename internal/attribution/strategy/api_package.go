package strategy

import (
	"context"
	"fmt"

	"github.com/smallbiznis/revenueshare/internal/attribution/domain"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
)

// APIPackage splits equally among nationally-approved providers.
type APIPackage struct {
	directory domain.ProviderDirectory
}

func NewAPIPackage(directory domain.ProviderDirectory) *APIPackage {
	return &APIPackage{directory: directory}
}

func (s *APIPackage) PackageType() packagetype.Type { return packagetype.API }

func (s *APIPackage) Name() string { return "equal_split_national" }

func (s *APIPackage) ComputeAttribution(ctx context.Context, p domain.Purchase) ([]domain.Weight, error) {
	providers, err := s.directory.ListApprovedProviders(ctx, domain.ApprovalQuery{At: p.CompletedAt})
	if err != nil {
		return nil, fmt.Errorf("nationally approved providers: %w", err)
	}
	weights := equalSplit(providers)
	if len(weights) == 0 {
		return nil, domain.ErrNoEligibleProviders
	}
	return weights, nil
}

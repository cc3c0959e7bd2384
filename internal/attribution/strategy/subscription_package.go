package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/revenueshare/internal/attribution/domain"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
)

// SubscriptionPackage splits equally among providers with an approved dataset
// covering the subscribed province when the purchase completed.
type SubscriptionPackage struct {
	directory domain.ProviderDirectory
}

func NewSubscriptionPackage(directory domain.ProviderDirectory) *SubscriptionPackage {
	return &SubscriptionPackage{directory: directory}
}

func (s *SubscriptionPackage) PackageType() packagetype.Type { return packagetype.Subscription }

func (s *SubscriptionPackage) Name() string { return "equal_split_province" }

func (s *SubscriptionPackage) ComputeAttribution(ctx context.Context, p domain.Purchase) ([]domain.Weight, error) {
	province := strings.TrimSpace(p.Province)
	if province == "" {
		return nil, domain.ErrProvinceRequired
	}
	providers, err := s.directory.ListApprovedProviders(ctx, domain.ApprovalQuery{
		Province: province,
		At:       p.CompletedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("approved providers for %s: %w", province, err)
	}
	weights := equalSplit(providers)
	if len(weights) == 0 {
		return nil, domain.ErrNoEligibleProviders
	}
	return weights, nil
}

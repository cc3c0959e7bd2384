package strategy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/smallbiznis/revenueshare/internal/attribution/domain"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
)

// DataPackage weights providers by the rows they contributed to the purchased
// query result. Providers contributing no rows are excluded.
type DataPackage struct {
	rows domain.RowContributionSource
}

func NewDataPackage(rows domain.RowContributionSource) *DataPackage {
	return &DataPackage{rows: rows}
}

func (s *DataPackage) PackageType() packagetype.Type { return packagetype.Data }

func (s *DataPackage) Name() string { return "row_contribution" }

func (s *DataPackage) ComputeAttribution(ctx context.Context, p domain.Purchase) ([]domain.Weight, error) {
	contributions, err := s.rows.RowContributions(ctx, p.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("row contributions: %w", err)
	}

	perProvider := map[string]int64{}
	var total int64
	for _, c := range contributions {
		if c.Rows < 0 {
			return nil, fmt.Errorf("%w: provider %s reported %d rows", domain.ErrInvalidRowContribution, c.ProviderID, c.Rows)
		}
		id := strings.TrimSpace(c.ProviderID)
		if id == "" || c.Rows == 0 {
			continue
		}
		perProvider[id] += c.Rows
		total += c.Rows
	}
	if total == 0 {
		return nil, domain.ErrNoEligibleProviders
	}

	ids := make([]string, 0, len(perProvider))
	for id := range perProvider {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	weights := make([]domain.Weight, 0, len(ids))
	for _, id := range ids {
		rows := perProvider[id]
		g := gcd(rows, total)
		weights = append(weights, domain.Weight{
			ProviderID:  id,
			Numerator:   rows / g,
			Denominator: total / g,
		})
	}
	return weights, nil
}

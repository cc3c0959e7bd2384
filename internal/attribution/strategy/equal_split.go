package strategy

import (
	"sort"
	"strings"

	"github.com/smallbiznis/revenueshare/internal/attribution/domain"
)

// equalSplit gives each distinct provider a weight of 1/N, ordered by id.
func equalSplit(providerIDs []string) []domain.Weight {
	seen := make(map[string]struct{}, len(providerIDs))
	ids := make([]string, 0, len(providerIDs))
	for _, id := range providerIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	n := int64(len(ids))
	weights := make([]domain.Weight, 0, len(ids))
	for _, id := range ids {
		weights = append(weights, domain.Weight{ProviderID: id, Numerator: 1, Denominator: n})
	}
	return weights
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

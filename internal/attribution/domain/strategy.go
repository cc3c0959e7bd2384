package domain

import (
	"context"

	"github.com/smallbiznis/revenueshare/internal/packagetype"
)

// Strategy computes provider weights for one package type. Returned weights
// are non-negative and sum to exactly one, or the slice is empty together
// with ErrNoEligibleProviders.
type Strategy interface {
	PackageType() packagetype.Type
	Name() string
	ComputeAttribution(ctx context.Context, p Purchase) ([]Weight, error)
}

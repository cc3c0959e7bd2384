package domain

import (
	"context"

	"github.com/smallbiznis/revenueshare/internal/period"
	"gorm.io/gorm"
)

// Dimension is a grouping column of the summary.
type Dimension string

const (
	ByMonth       Dimension = "month_year"
	ByPackageType Dimension = "package_type"
	ByProvider    Dimension = "provider_id"
)

type EarningsRow struct {
	GroupKey   string
	ShareCount int64
	StatusTotals
}

type RevenueRow struct {
	GroupKey string
	RevenueTotals
}

type Repository interface {
	Earnings(ctx context.Context, db *gorm.DB, dim Dimension, from, to period.MonthYear) ([]EarningsRow, error)
	// Revenue groups processed transactions. ByProvider is not supported.
	Revenue(ctx context.Context, db *gorm.DB, dim Dimension, from, to period.MonthYear) ([]RevenueRow, error)
}

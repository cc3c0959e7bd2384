package repository

import (
	"context"
	"fmt"

	"github.com/smallbiznis/revenueshare/internal/period"
	reportingdomain "github.com/smallbiznis/revenueshare/internal/reporting/domain"
	sharedomain "github.com/smallbiznis/revenueshare/internal/revenueshare/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() reportingdomain.Repository {
	return &repo{}
}

func column(dim reportingdomain.Dimension) (string, error) {
	switch dim {
	case reportingdomain.ByMonth, reportingdomain.ByPackageType, reportingdomain.ByProvider:
		return string(dim), nil
	default:
		return "", fmt.Errorf("unsupported summary dimension %q", dim)
	}
}

func (r *repo) Earnings(ctx context.Context, db *gorm.DB, dim reportingdomain.Dimension, from, to period.MonthYear) ([]reportingdomain.EarningsRow, error) {
	col, err := column(dim)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT %[1]s AS group_key,
		        COUNT(*) AS share_count,
		        COALESCE(SUM(CASE WHEN payout_status = ? THEN provider_share ELSE 0 END), 0) AS pending,
		        COALESCE(SUM(CASE WHEN payout_status = ? THEN provider_share ELSE 0 END), 0) AS included,
		        COALESCE(SUM(CASE WHEN payout_status = ? THEN provider_share ELSE 0 END), 0) AS paid
		 FROM revenue_shares
		 WHERE month_year >= ? AND month_year <= ?
		 GROUP BY %[1]s
		 ORDER BY %[1]s ASC`,
		col,
	)

	var rows []reportingdomain.EarningsRow
	err = db.WithContext(ctx).Raw(query,
		sharedomain.StatusPending,
		sharedomain.StatusIncluded,
		sharedomain.StatusPaid,
		from,
		to,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) Revenue(ctx context.Context, db *gorm.DB, dim reportingdomain.Dimension, from, to period.MonthYear) ([]reportingdomain.RevenueRow, error) {
	if dim == reportingdomain.ByProvider {
		return nil, fmt.Errorf("unsupported revenue dimension %q", dim)
	}
	col, err := column(dim)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT %[1]s AS group_key,
		        COUNT(*) AS transactions,
		        COALESCE(SUM(total_amount), 0) AS gross_amount,
		        COALESCE(SUM(provider_share_total), 0) AS provider_share,
		        COALESCE(SUM(admin_share), 0) AS admin_share
		 FROM transactions
		 WHERE shares_calculated_at IS NOT NULL AND month_year >= ? AND month_year <= ?
		 GROUP BY %[1]s
		 ORDER BY %[1]s ASC`,
		col,
	)

	var rows []reportingdomain.RevenueRow
	if err := db.WithContext(ctx).Raw(query, from, to).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenueshare/internal/period"
	sharedomain "github.com/smallbiznis/revenueshare/internal/revenueshare/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const shareColumns = `id, transaction_id, provider_id, package_type, total_amount, provider_share, admin_share,
	weight_numerator, weight_denominator, pricing_snapshot_id, month_year, calculated_at,
	payout_status, payout_id, paid_at`

type repo struct{}

func Provide() sharedomain.Repository {
	return &repo{}
}

func (r *repo) InsertShares(ctx context.Context, db *gorm.DB, shares []sharedomain.RevenueShare) (int64, error) {
	if len(shares) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}, {Name: "provider_id"}},
			DoNothing: true,
		}).
		Create(&shares)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) ListByTransaction(ctx context.Context, db *gorm.DB, transactionID string) ([]sharedomain.RevenueShare, error) {
	var items []sharedomain.RevenueShare
	err := db.WithContext(ctx).Raw(
		`SELECT `+shareColumns+`
		 FROM revenue_shares
		 WHERE transaction_id = ?
		 ORDER BY provider_id ASC`,
		transactionID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID) ([]sharedomain.RevenueShare, error) {
	var items []sharedomain.RevenueShare
	err := db.WithContext(ctx).Raw(
		`SELECT `+shareColumns+`
		 FROM revenue_shares
		 WHERE payout_id = ?
		 ORDER BY calculated_at ASC, id ASC`,
		payoutID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter sharedomain.ListFilter) ([]sharedomain.RevenueShare, error) {
	query := `SELECT ` + shareColumns + ` FROM revenue_shares WHERE provider_id = ?`
	args := []any{filter.ProviderID}

	if filter.From != nil {
		query += ` AND calculated_at >= ?`
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		query += ` AND calculated_at < ?`
		args = append(args, filter.To.UTC())
	}
	if filter.Status != "" {
		query += ` AND payout_status = ?`
		args = append(args, filter.Status)
	}
	if filter.After != nil {
		query += ` AND (calculated_at < ? OR (calculated_at = ? AND id < ?))`
		args = append(args, filter.After.CalculatedAt.UTC(), filter.After.CalculatedAt.UTC(), filter.After.ID)
	}
	query += ` ORDER BY calculated_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var items []sharedomain.RevenueShare
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ClaimPending(ctx context.Context, db *gorm.DB, providerID string, month period.MonthYear, payoutID snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE revenue_shares
		 SET payout_status = ?, payout_id = ?
		 WHERE provider_id = ? AND month_year = ? AND payout_status = ?`,
		sharedomain.StatusIncluded,
		payoutID,
		providerID,
		month,
		sharedomain.StatusPending,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) SumByPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID) (sharedomain.PayoutSum, error) {
	var sum sharedomain.PayoutSum
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS share_count, COALESCE(SUM(provider_share), 0) AS total_due
		 FROM revenue_shares
		 WHERE payout_id = ?`,
		payoutID,
	).Scan(&sum).Error
	return sum, err
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, paidAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE revenue_shares
		 SET payout_status = ?, paid_at = ?
		 WHERE payout_id = ? AND payout_status = ?`,
		sharedomain.StatusPaid,
		paidAt.UTC(),
		payoutID,
		sharedomain.StatusIncluded,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) PendingDue(ctx context.Context, db *gorm.DB, providerID string, month period.MonthYear) (int64, error) {
	var due int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(provider_share), 0)
		 FROM revenue_shares
		 WHERE provider_id = ? AND month_year = ? AND payout_status = ?`,
		providerID,
		month,
		sharedomain.StatusPending,
	).Scan(&due).Error
	return due, err
}

func (r *repo) ProvidersWithPending(ctx context.Context, db *gorm.DB, month period.MonthYear) ([]string, error) {
	var providers []string
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT provider_id
		 FROM revenue_shares
		 WHERE month_year = ? AND payout_status = ? AND provider_share > 0
		 ORDER BY provider_id ASC`,
		month,
		sharedomain.StatusPending,
	).Scan(&providers).Error
	if err != nil {
		return nil, err
	}
	return providers, nil
}

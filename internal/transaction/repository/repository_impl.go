package repository

import (
	"context"

	txndomain "github.com/smallbiznis/revenueshare/internal/transaction/domain"
	"gorm.io/gorm"
)

const transactionColumns = `id, package_type, consumer_id, total_amount, currency, province, completed_at, created_at,
	pricing_snapshot_id, provider_share_total, admin_share, month_year, shares_calculated_at`

type repo struct{}

func Provide() txndomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, txn *txndomain.Transaction) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO transactions (
			id, package_type, consumer_id, total_amount, currency, province, completed_at, created_at,
			provider_share_total, admin_share
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0)
		ON CONFLICT (id) DO NOTHING`,
		txn.ID,
		txn.PackageType,
		txn.ConsumerID,
		txn.TotalAmount,
		txn.Currency,
		txn.Province,
		txn.CompletedAt.UTC(),
		txn.CreatedAt.UTC(),
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*txndomain.Transaction, error) {
	return r.find(ctx, db, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id string) (*txndomain.Transaction, error) {
	return r.find(ctx, db, id, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, id string, lock bool) (*txndomain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`
	if lock {
		query += ` FOR UPDATE`
	}
	var txn txndomain.Transaction
	if err := db.WithContext(ctx).Raw(query, id).Scan(&txn).Error; err != nil {
		return nil, err
	}
	if txn.ID == "" {
		return nil, nil
	}
	return &txn, nil
}

func (r *repo) UpdateShareSummary(ctx context.Context, db *gorm.DB, id string, summary txndomain.ShareSummary) error {
	return db.WithContext(ctx).Exec(
		`UPDATE transactions
		 SET pricing_snapshot_id = ?, provider_share_total = ?, admin_share = ?, month_year = ?, shares_calculated_at = ?
		 WHERE id = ? AND shares_calculated_at IS NULL`,
		summary.PricingSnapshotID,
		summary.ProviderShareTotal,
		summary.AdminShare,
		summary.MonthYear,
		summary.CalculatedAt.UTC(),
		id,
	).Error
}

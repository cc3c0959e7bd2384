package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	payoutdomain "github.com/smallbiznis/revenueshare/internal/payout/domain"
	"github.com/smallbiznis/revenueshare/internal/period"
	"gorm.io/gorm"
)

const payoutColumns = `id, provider_id, month_year, sequence, total_due, share_count, status, payment_method,
	transaction_ref, bank_account, failure_reason, completed_at, created_at, updated_at`

type repo struct{}

func Provide() payoutdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *payoutdomain.Payout) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payouts (`+payoutColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.ProviderID,
		p.MonthYear,
		p.Sequence,
		p.TotalDue,
		p.ShareCount,
		p.Status,
		p.PaymentMethod,
		p.TransactionRef,
		p.BankAccount,
		p.FailureReason,
		p.CompletedAt,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*payoutdomain.Payout, error) {
	return r.findOne(ctx, db, `SELECT `+payoutColumns+` FROM payouts WHERE id = ?`, id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*payoutdomain.Payout, error) {
	return r.findOne(ctx, db, `SELECT `+payoutColumns+` FROM payouts WHERE id = ? FOR UPDATE`, id)
}

func (r *repo) FindOpenForUpdate(ctx context.Context, db *gorm.DB, providerID string, month period.MonthYear) (*payoutdomain.Payout, error) {
	return r.findOne(ctx, db,
		`SELECT `+payoutColumns+`
		 FROM payouts
		 WHERE provider_id = ? AND month_year = ? AND status IN (?, ?)
		 ORDER BY sequence DESC
		 LIMIT 1
		 FOR UPDATE`,
		providerID, month, payoutdomain.StatusPending, payoutdomain.StatusProcessing,
	)
}

func (r *repo) FindLatestFailedForUpdate(ctx context.Context, db *gorm.DB, providerID string, month period.MonthYear) (*payoutdomain.Payout, error) {
	return r.findOne(ctx, db,
		`SELECT `+payoutColumns+`
		 FROM payouts
		 WHERE provider_id = ? AND month_year = ? AND status = ?
		 ORDER BY sequence DESC
		 LIMIT 1
		 FOR UPDATE`,
		providerID, month, payoutdomain.StatusFailed,
	)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*payoutdomain.Payout, error) {
	var p payoutdomain.Payout
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) NextSequence(ctx context.Context, db *gorm.DB, providerID string, month period.MonthYear) (int, error) {
	var next int
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM payouts WHERE provider_id = ? AND month_year = ?`,
		providerID, month,
	).Scan(&next).Error
	return next, err
}

func (r *repo) UpdateState(ctx context.Context, db *gorm.DB, p *payoutdomain.Payout, expected payoutdomain.PayoutStatus) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payouts
		 SET status = ?, total_due = ?, share_count = ?, payment_method = ?, transaction_ref = ?,
		     bank_account = ?, failure_reason = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		p.Status,
		p.TotalDue,
		p.ShareCount,
		p.PaymentMethod,
		p.TransactionRef,
		p.BankAccount,
		p.FailureReason,
		p.CompletedAt,
		p.UpdatedAt,
		p.ID,
		expected,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter payoutdomain.ListFilter) ([]payoutdomain.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE 1 = 1`
	args := []any{}
	if filter.ProviderID != "" {
		query += ` AND provider_id = ?`
		args = append(args, filter.ProviderID)
	}
	if filter.MonthYear != "" {
		query += ` AND month_year = ?`
		args = append(args, filter.MonthYear)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY month_year DESC, provider_id ASC, sequence DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var items []payoutdomain.Payout
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ProvidersWithPendingPayout(ctx context.Context, db *gorm.DB, month period.MonthYear) ([]string, error) {
	var providers []string
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT provider_id FROM payouts WHERE month_year = ? AND status = ? ORDER BY provider_id ASC`,
		month, payoutdomain.StatusPending,
	).Scan(&providers).Error
	if err != nil {
		return nil, err
	}
	return providers, nil
}

func (r *repo) InsertStatusChange(ctx context.Context, db *gorm.DB, c *payoutdomain.PayoutStatusChange) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payout_status_history (id, payout_id, from_status, to_status, actor, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PayoutID, c.FromStatus, c.ToStatus, c.Actor, c.Reason, c.CreatedAt,
	).Error
}

func (r *repo) ListStatusChanges(ctx context.Context, db *gorm.DB, payoutID snowflake.ID) ([]payoutdomain.PayoutStatusChange, error) {
	var items []payoutdomain.PayoutStatusChange
	err := db.WithContext(ctx).Raw(
		`SELECT id, payout_id, from_status, to_status, actor, reason, created_at
		 FROM payout_status_history
		 WHERE payout_id = ?
		 ORDER BY created_at ASC, id ASC`,
		payoutID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertRun(ctx context.Context, db *gorm.DB, run *payoutdomain.PayoutGenerationRun) error {
	return db.WithContext(ctx).Create(run).Error
}

func (r *repo) FindRun(ctx context.Context, db *gorm.DB, id string) (*payoutdomain.PayoutGenerationRun, error) {
	var run payoutdomain.PayoutGenerationRun
	err := db.WithContext(ctx).Raw(
		`SELECT id, month_year, triggered_by, actor, providers, failed, results, started_at, finished_at
		 FROM payout_generation_runs WHERE id = ?`,
		id,
	).Scan(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == "" {
		return nil, nil
	}
	return &run, nil
}

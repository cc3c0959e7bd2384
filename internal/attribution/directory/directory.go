// Package directory adapts the tables owned by the dataset approval and query
// subsystems to the attribution ports.
package directory

import (
	"context"
	"strings"

	"github.com/smallbiznis/revenueshare/internal/attribution/domain"
	"gorm.io/gorm"
)

type ProviderDirectory struct {
	db *gorm.DB
}

func NewProviderDirectory(db *gorm.DB) domain.ProviderDirectory {
	return &ProviderDirectory{db: db}
}

// ListApprovedProviders returns providers whose approval was live at q.At. A
// province query also matches nationally-covering datasets since those serve
// every province.
func (d *ProviderDirectory) ListApprovedProviders(ctx context.Context, q domain.ApprovalQuery) ([]string, error) {
	query := `SELECT DISTINCT provider_id
		 FROM provider_dataset_approvals
		 WHERE approved_at <= ?
		   AND (revoked_at IS NULL OR revoked_at > ?)`
	args := []any{q.At.UTC(), q.At.UTC()}

	if province := strings.TrimSpace(q.Province); province != "" {
		query += ` AND (coverage = ? OR (coverage = ? AND LOWER(province) = LOWER(?)))`
		args = append(args, CoverageNational, CoverageProvincial, province)
	} else {
		query += ` AND coverage = ?`
		args = append(args, CoverageNational)
	}
	query += ` ORDER BY provider_id ASC`

	var ids []string
	if err := d.db.WithContext(ctx).Raw(query, args...).Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

type RowContributionSource struct {
	db *gorm.DB
}

func NewRowContributionSource(db *gorm.DB) domain.RowContributionSource {
	return &RowContributionSource{db: db}
}

func (s *RowContributionSource) RowContributions(ctx context.Context, transactionID string) ([]domain.RowContribution, error) {
	var rows []struct {
		ProviderID string
		RowTotal   int64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT provider_id, SUM(row_count) AS row_total
		 FROM purchase_row_contributions
		 WHERE transaction_id = ?
		 GROUP BY provider_id
		 ORDER BY provider_id ASC`,
		transactionID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.RowContribution, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.RowContribution{ProviderID: r.ProviderID, Rows: r.RowTotal})
	}
	return out, nil
}

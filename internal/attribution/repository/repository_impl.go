package repository

import (
	"context"

	attributiondomain "github.com/smallbiznis/revenueshare/internal/attribution/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() attributiondomain.Repository {
	return &repo{}
}

func (r *repo) FindAttribution(ctx context.Context, db *gorm.DB, transactionID string) (*attributiondomain.Attribution, error) {
	var a attributiondomain.Attribution
	err := db.WithContext(ctx).Raw(
		`SELECT transaction_id, package_type, strategy, provider_count, warning, resolved_at
		 FROM attributions WHERE transaction_id = ?`,
		transactionID,
	).Scan(&a).Error
	if err != nil {
		return nil, err
	}
	if a.TransactionID == "" {
		return nil, nil
	}
	return &a, nil
}

func (r *repo) InsertAttribution(ctx context.Context, db *gorm.DB, a *attributiondomain.Attribution) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO attributions (
			transaction_id, package_type, strategy, provider_count, warning, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (transaction_id) DO NOTHING`,
		a.TransactionID,
		a.PackageType,
		a.Strategy,
		a.ProviderCount,
		a.Warning,
		a.ResolvedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) InsertWeights(ctx context.Context, db *gorm.DB, weights []attributiondomain.AttributionWeight) error {
	for _, w := range weights {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO attribution_weights (transaction_id, provider_id, numerator, denominator)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (transaction_id, provider_id) DO NOTHING`,
			w.TransactionID,
			w.ProviderID,
			w.Numerator,
			w.Denominator,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ListWeights(ctx context.Context, db *gorm.DB, transactionID string) ([]attributiondomain.AttributionWeight, error) {
	var items []attributiondomain.AttributionWeight
	err := db.WithContext(ctx).Raw(
		`SELECT transaction_id, provider_id, numerator, denominator
		 FROM attribution_weights
		 WHERE transaction_id = ?
		 ORDER BY provider_id ASC`,
		transactionID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

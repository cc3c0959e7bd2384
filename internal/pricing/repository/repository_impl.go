package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
	pricingdomain "github.com/smallbiznis/revenueshare/internal/pricing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() pricingdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, snapshot *pricingdomain.PricingSnapshot) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO pricing_snapshots (
			id, package_type, provider_commission_percent, admin_commission_percent, effective_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		snapshot.ID,
		snapshot.PackageType,
		snapshot.ProviderCommissionPercent,
		snapshot.AdminCommissionPercent,
		snapshot.EffectiveAt,
		snapshot.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*pricingdomain.PricingSnapshot, error) {
	var snapshot pricingdomain.PricingSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT id, package_type, provider_commission_percent, admin_commission_percent, effective_at, created_at
		 FROM pricing_snapshots WHERE id = ?`,
		id,
	).Scan(&snapshot).Error
	if err != nil {
		return nil, err
	}
	if snapshot.ID == 0 {
		return nil, nil
	}
	return &snapshot, nil
}

func (r *repo) FindEffective(ctx context.Context, db *gorm.DB, packageType packagetype.Type, at time.Time) (*pricingdomain.PricingSnapshot, error) {
	var snapshot pricingdomain.PricingSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT id, package_type, provider_commission_percent, admin_commission_percent, effective_at, created_at
		 FROM pricing_snapshots
		 WHERE package_type = ? AND effective_at <= ?
		 ORDER BY effective_at DESC, id DESC
		 LIMIT 1`,
		packageType,
		at.UTC(),
	).Scan(&snapshot).Error
	if err != nil {
		return nil, err
	}
	if snapshot.ID == 0 {
		return nil, nil
	}
	return &snapshot, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, packageType packagetype.Type) ([]pricingdomain.PricingSnapshot, error) {
	var items []pricingdomain.PricingSnapshot
	query := `SELECT id, package_type, provider_commission_percent, admin_commission_percent, effective_at, created_at
		 FROM pricing_snapshots`
	args := []any{}
	if packageType != "" {
		query += ` WHERE package_type = ?`
		args = append(args, packageType)
	}
	query += ` ORDER BY package_type ASC, effective_at DESC`

	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

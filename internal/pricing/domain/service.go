package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, packageType string) ([]Response, error)
	// Lookup resolves the snapshot in effect for packageType at the given time.
	// db lets callers run the lookup inside their own transaction; nil uses
	// the service connection.
	Lookup(ctx context.Context, db *gorm.DB, packageType packagetype.Type, at time.Time) (*PricingSnapshot, error)
}

type CreateRequest struct {
	PackageType               string          `json:"package_type"`
	ProviderCommissionPercent decimal.Decimal `json:"provider_commission_percent"`
	AdminCommissionPercent    decimal.Decimal `json:"admin_commission_percent"`
	EffectiveAt               *time.Time      `json:"effective_at"`
}

type Response struct {
	ID                        string          `json:"id"`
	PackageType               string          `json:"package_type"`
	ProviderCommissionPercent decimal.Decimal `json:"provider_commission_percent"`
	AdminCommissionPercent    decimal.Decimal `json:"admin_commission_percent"`
	EffectiveAt               time.Time       `json:"effective_at"`
	CreatedAt                 time.Time       `json:"created_at"`
}

var (
	ErrInvalidPackageType      = errors.New("invalid_package_type")
	ErrInvalidCommission       = errors.New("invalid_commission_percent")
	ErrCommissionSumMismatch   = errors.New("commission_percent_must_sum_to_100")
	ErrCommissionScaleTooLarge = errors.New("commission_percent_scale_too_large")
	ErrSnapshotNotFound        = errors.New("pricing_snapshot_not_found")
)

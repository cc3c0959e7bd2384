package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Service interface {
	// Resolve returns the attribution of a purchase, computing and storing it
	// on first sight. db must be the caller's transaction so attribution and
	// share calculation commit together.
	Resolve(ctx context.Context, db *gorm.DB, p Purchase) (*Result, error)
	Get(ctx context.Context, transactionID string) (*Result, error)
}

var (
	ErrNoEligibleProviders     = errors.New("no_eligible_providers")
	ErrUnsupportedPackageType  = errors.New("unsupported_package_type")
	ErrProvinceRequired        = errors.New("province_required")
	ErrInvalidRowContribution  = errors.New("invalid_row_contribution")
	ErrDuplicateStrategy       = errors.New("duplicate_attribution_strategy")
	ErrAttributionNotFound     = errors.New("attribution_not_found")
	ErrInvalidTransactionInput = errors.New("invalid_attribution_input")
)

package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindAttribution(ctx context.Context, db *gorm.DB, transactionID string) (*Attribution, error)
	// InsertAttribution returns false when another delivery stored it first.
	InsertAttribution(ctx context.Context, db *gorm.DB, a *Attribution) (bool, error)
	InsertWeights(ctx context.Context, db *gorm.DB, weights []AttributionWeight) error
	ListWeights(ctx context.Context, db *gorm.DB, transactionID string) ([]AttributionWeight, error)
}

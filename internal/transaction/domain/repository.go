package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Insert stores the transaction unless its id already exists and reports
	// whether a row was written.
	Insert(ctx context.Context, db *gorm.DB, txn *Transaction) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Transaction, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id string) (*Transaction, error)
	UpdateShareSummary(ctx context.Context, db *gorm.DB, id string, summary ShareSummary) error
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenueshare/internal/period"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payout *Payout) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payout, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payout, error)
	// FindOpenForUpdate locks the pending or processing payout of the key.
	FindOpenForUpdate(ctx context.Context, db *gorm.DB, providerID string, month period.MonthYear) (*Payout, error)
	FindLatestFailedForUpdate(ctx context.Context, db *gorm.DB, providerID string, month period.MonthYear) (*Payout, error)
	NextSequence(ctx context.Context, db *gorm.DB, providerID string, month period.MonthYear) (int, error)
	// UpdateState writes the mutable columns of payout when its stored status
	// is still expected. It reports whether the row matched.
	UpdateState(ctx context.Context, db *gorm.DB, payout *Payout, expected PayoutStatus) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Payout, error)
	ProvidersWithPendingPayout(ctx context.Context, db *gorm.DB, month period.MonthYear) ([]string, error)

	InsertStatusChange(ctx context.Context, db *gorm.DB, change *PayoutStatusChange) error
	ListStatusChanges(ctx context.Context, db *gorm.DB, payoutID snowflake.ID) ([]PayoutStatusChange, error)

	InsertRun(ctx context.Context, db *gorm.DB, run *PayoutGenerationRun) error
	FindRun(ctx context.Context, db *gorm.DB, id string) (*PayoutGenerationRun, error)
}

type ListFilter struct {
	ProviderID string
	MonthYear  period.MonthYear
	Status     PayoutStatus
	Limit      int
}

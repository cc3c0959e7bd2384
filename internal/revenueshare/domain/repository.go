package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenueshare/internal/period"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertShares stores shares, skipping any (transaction, provider) pair
	// already present. It returns the number of rows written.
	InsertShares(ctx context.Context, db *gorm.DB, shares []RevenueShare) (int64, error)
	ListByTransaction(ctx context.Context, db *gorm.DB, transactionID string) ([]RevenueShare, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]RevenueShare, error)
	ListByPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID) ([]RevenueShare, error)

	// ClaimPending flips the provider's Pending shares of the month to
	// Included under payoutID and returns how many were claimed.
	ClaimPending(ctx context.Context, db *gorm.DB, providerID string, month period.MonthYear, payoutID snowflake.ID) (int64, error)
	SumByPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID) (PayoutSum, error)
	MarkPaid(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, paidAt time.Time) (int64, error)
	PendingDue(ctx context.Context, db *gorm.DB, providerID string, month period.MonthYear) (int64, error)
	ProvidersWithPending(ctx context.Context, db *gorm.DB, month period.MonthYear) ([]string, error)
}

type ListFilter struct {
	ProviderID string
	From       *time.Time
	To         *time.Time
	Status     PayoutStatus
	After      *ListCursor
	Limit      int
}

// ListCursor positions keyset pagination on (calculated_at, id) descending.
type ListCursor struct {
	CalculatedAt time.Time
	ID           snowflake.ID
}

type PayoutSum struct {
	ShareCount int64
	TotalDue   int64
}

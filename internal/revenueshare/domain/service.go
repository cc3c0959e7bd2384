package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
	"github.com/smallbiznis/revenueshare/internal/period"
	"github.com/smallbiznis/revenueshare/pkg/db/pagination"
	"gorm.io/gorm"
)

type Service interface {
	// Record calculates and persists the shares of one transaction inside db,
	// which must be the caller's transaction. Recording the same transaction
	// twice returns the stored shares.
	Record(ctx context.Context, db *gorm.DB, req RecordRequest) (*RecordResult, error)
	ListByProvider(ctx context.Context, req ListRequest) (*ListResponse, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]RevenueShare, error)
	ListByPayout(ctx context.Context, payoutID snowflake.ID) ([]RevenueShare, error)

	Aggregator
}

// Aggregator is the share-side half of payout generation and completion.
// Every method runs inside the caller's transaction.
type Aggregator interface {
	ClaimPending(ctx context.Context, db *gorm.DB, providerID string, month period.MonthYear, payoutID snowflake.ID) (int64, error)
	SumByPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID) (PayoutSum, error)
	MarkPaid(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, paidAt time.Time) (int64, error)
	PendingDue(ctx context.Context, db *gorm.DB, providerID string, month period.MonthYear) (int64, error)
	ProvidersWithPending(ctx context.Context, db *gorm.DB, month period.MonthYear) ([]string, error)
}

type RecordRequest struct {
	TransactionID             string
	PackageType               packagetype.Type
	TotalAmount               int64
	ProviderCommissionPercent decimal.Decimal
	PricingSnapshotID         snowflake.ID
	Weights                   []WeightInput
	CalculatedAt              time.Time
}

type RecordResult struct {
	Split    Split
	Shares   []RevenueShare
	Replayed bool
}

type ListRequest struct {
	ProviderID string `form:"provider_id"`
	From       string `form:"from"`
	To         string `form:"to"`
	Status     string `form:"status"`
	PageSize   int    `form:"page_size"`
	PageToken  string `form:"page_token"`
}

type ListResponse struct {
	Shares   []RevenueShare      `json:"revenue_shares"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidProvider    = errors.New("invalid_provider_id")
	ErrInvalidStatus      = errors.New("invalid_payout_status")
	ErrInvalidRange       = errors.New("invalid_date_range")
	ErrInvalidTransaction = errors.New("invalid_transaction")
	ErrShareMismatch      = errors.New("revenue_share_mismatch")
)

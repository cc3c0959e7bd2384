package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
	"github.com/smallbiznis/revenueshare/internal/period"
)

type PayoutStatus string

const (
	StatusPending  PayoutStatus = "pending"
	StatusIncluded PayoutStatus = "included"
	StatusPaid     PayoutStatus = "paid"
)

func (s PayoutStatus) Valid() bool {
	switch s {
	case StatusPending, StatusIncluded, StatusPaid:
		return true
	default:
		return false
	}
}

// RevenueShare is one provider's earning from one transaction. Amounts are
// minor currency units and ProviderShare + AdminShare == TotalAmount.
type RevenueShare struct {
	ID                snowflake.ID     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	TransactionID     string           `json:"transaction_id" gorm:"type:text;not null;uniqueIndex:ux_revenue_shares_txn_provider,priority:1"`
	ProviderID        string           `json:"provider_id" gorm:"type:text;not null;uniqueIndex:ux_revenue_shares_txn_provider,priority:2;index:idx_revenue_shares_aggregate,priority:1"`
	PackageType       packagetype.Type `json:"package_type" gorm:"type:text;not null"`
	TotalAmount       int64            `json:"total_amount" gorm:"not null"`
	ProviderShare     int64            `json:"provider_share" gorm:"not null"`
	AdminShare        int64            `json:"admin_share" gorm:"not null"`
	WeightNumerator   int64            `json:"weight_numerator" gorm:"not null"`
	WeightDenominator int64            `json:"weight_denominator" gorm:"not null"`
	PricingSnapshotID snowflake.ID     `json:"pricing_snapshot_id" gorm:"not null"`
	MonthYear         period.MonthYear `json:"month_year" gorm:"type:char(7);not null;index:idx_revenue_shares_aggregate,priority:2"`
	CalculatedAt      time.Time        `json:"calculated_at" gorm:"not null;index"`
	PayoutStatus      PayoutStatus     `json:"payout_status" gorm:"type:text;not null;index:idx_revenue_shares_aggregate,priority:3"`
	PayoutID          *snowflake.ID    `json:"payout_id,omitempty" gorm:"index"`
	PaidAt            *time.Time       `json:"paid_at,omitempty"`
}

func (RevenueShare) TableName() string { return "revenue_shares" }

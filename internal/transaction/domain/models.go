package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
	"github.com/smallbiznis/revenueshare/internal/period"
)

// Transaction is a completed purchase as delivered by the checkout flow. The
// purchase columns never change; the share summary is written once by the
// same unit of work that stores the row.
type Transaction struct {
	ID          string           `json:"id" gorm:"primaryKey;type:text"`
	PackageType packagetype.Type `json:"package_type" gorm:"type:text;not null"`
	ConsumerID  string           `json:"consumer_id" gorm:"type:text;not null"`
	TotalAmount int64            `json:"total_amount" gorm:"not null"`
	Currency    string           `json:"currency" gorm:"type:text;not null"`
	Province    string           `json:"province,omitempty" gorm:"type:text"`
	CompletedAt time.Time        `json:"completed_at" gorm:"not null"`
	CreatedAt   time.Time        `json:"created_at" gorm:"not null"`

	PricingSnapshotID  *snowflake.ID    `json:"pricing_snapshot_id,omitempty"`
	ProviderShareTotal int64            `json:"provider_share_total" gorm:"not null;default:0"`
	AdminShare         int64            `json:"admin_share" gorm:"not null;default:0"`
	MonthYear          period.MonthYear `json:"month_year,omitempty" gorm:"type:char(7);index"`
	SharesCalculatedAt *time.Time       `json:"shares_calculated_at,omitempty"`
}

func (Transaction) TableName() string { return "transactions" }

// SameFacts reports whether other describes the same purchase.
func (t Transaction) SameFacts(other Transaction) bool {
	return t.ID == other.ID &&
		t.PackageType == other.PackageType &&
		t.ConsumerID == other.ConsumerID &&
		t.TotalAmount == other.TotalAmount &&
		t.Currency == other.Currency &&
		t.Province == other.Province &&
		t.CompletedAt.Equal(other.CompletedAt)
}

// ShareSummary is what share calculation writes back onto the transaction.
type ShareSummary struct {
	PricingSnapshotID  snowflake.ID
	ProviderShareTotal int64
	AdminShare         int64
	MonthYear          period.MonthYear
	CalculatedAt       time.Time
}

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
)

// PricingSnapshot is the commission split of a package type from EffectiveAt
// onwards. Rows are insert-only so historical transactions keep the split that
// applied when they completed.
type PricingSnapshot struct {
	ID                        snowflake.ID     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	PackageType               packagetype.Type `json:"package_type" gorm:"type:text;not null;index:idx_pricing_snapshots_lookup,priority:1"`
	ProviderCommissionPercent decimal.Decimal  `json:"provider_commission_percent" gorm:"type:numeric(7,4);not null"`
	AdminCommissionPercent    decimal.Decimal  `json:"admin_commission_percent" gorm:"type:numeric(7,4);not null"`
	EffectiveAt               time.Time        `json:"effective_at" gorm:"not null;index:idx_pricing_snapshots_lookup,priority:2"`
	CreatedAt                 time.Time        `json:"created_at" gorm:"not null"`
}

func (PricingSnapshot) TableName() string { return "pricing_snapshots" }

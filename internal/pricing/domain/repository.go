package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, snapshot *PricingSnapshot) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PricingSnapshot, error)
	// FindEffective returns the snapshot with the greatest effective_at <= at.
	FindEffective(ctx context.Context, db *gorm.DB, packageType packagetype.Type, at time.Time) (*PricingSnapshot, error)
	List(ctx context.Context, db *gorm.DB, packageType packagetype.Type) ([]PricingSnapshot, error)
}

package domain

import (
	"time"

	"github.com/smallbiznis/revenueshare/internal/packagetype"
)

// Purchase is the slice of a completed transaction attribution needs.
type Purchase struct {
	TransactionID string
	PackageType   packagetype.Type
	Province      string
	CompletedAt   time.Time
}

// Weight is an exact rational fraction of a transaction credited to a provider.
type Weight struct {
	ProviderID  string
	Numerator   int64
	Denominator int64
}

// Attribution is the immutable header recorded the first time a transaction
// is attributed. An empty attribution carries a Warning.
type Attribution struct {
	TransactionID string           `json:"transaction_id" gorm:"primaryKey;type:text"`
	PackageType   packagetype.Type `json:"package_type" gorm:"type:text;not null"`
	Strategy      string           `json:"strategy" gorm:"type:text;not null"`
	ProviderCount int              `json:"provider_count" gorm:"not null"`
	Warning       string           `json:"warning,omitempty" gorm:"type:text"`
	ResolvedAt    time.Time        `json:"resolved_at" gorm:"not null"`
}

func (Attribution) TableName() string { return "attributions" }

type AttributionWeight struct {
	TransactionID string `json:"transaction_id" gorm:"primaryKey;type:text"`
	ProviderID    string `json:"provider_id" gorm:"primaryKey;type:text"`
	Numerator     int64  `json:"numerator" gorm:"not null"`
	Denominator   int64  `json:"denominator" gorm:"not null"`
}

func (AttributionWeight) TableName() string { return "attribution_weights" }

// Result is what share calculation consumes.
type Result struct {
	Attribution Attribution
	Weights     []Weight
	// Replayed is true when the attribution had been stored by an earlier delivery.
	Replayed bool
}

// Empty reports whether no provider was eligible.
func (r Result) Empty() bool { return len(r.Weights) == 0 }

package directory

import "time"

const (
	CoverageNational   = "national"
	CoverageProvincial = "provincial"
)

// ProviderDatasetApproval mirrors the dataset approval subsystem's record of
// which provider datasets are live and where they apply.
type ProviderDatasetApproval struct {
	ID         int64      `gorm:"primaryKey"`
	ProviderID string     `gorm:"type:text;not null;index"`
	DatasetID  string     `gorm:"type:text;not null"`
	Coverage   string     `gorm:"type:text;not null"`
	Province   string     `gorm:"type:text;index"`
	ApprovedAt time.Time  `gorm:"not null"`
	RevokedAt  *time.Time `gorm:""`
}

func (ProviderDatasetApproval) TableName() string { return "provider_dataset_approvals" }

// PurchaseRowContribution is written by the dataset query engine when a data
// package purchase is fulfilled.
type PurchaseRowContribution struct {
	TransactionID string `gorm:"primaryKey;type:text"`
	ProviderID    string `gorm:"primaryKey;type:text"`
	DatasetID     string `gorm:"primaryKey;type:text"`
	RowCount      int64  `gorm:"not null"`
}

func (PurchaseRowContribution) TableName() string { return "purchase_row_contributions" }

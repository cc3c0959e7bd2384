package domain

//go:generate mockgen -source=ports.go -destination=mock/mock_ports.go -package=mock

import (
	"context"
	"time"
)

// ApprovalQuery selects providers approved as of At. An empty Province asks
// for nationally-approved providers only.
type ApprovalQuery struct {
	Province string
	At       time.Time
}

// ProviderDirectory lists approved providers. It is owned by the dataset
// approval subsystem.
type ProviderDirectory interface {
	ListApprovedProviders(ctx context.Context, q ApprovalQuery) ([]string, error)
}

type RowContribution struct {
	ProviderID string
	Rows       int64
}

// RowContributionSource reports how many rows each provider contributed to a
// data package purchase.
type RowContributionSource interface {
	RowContributions(ctx context.Context, transactionID string) ([]RowContribution, error)
}

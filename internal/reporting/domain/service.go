package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/revenueshare/internal/period"
)

type Service interface {
	// RevenueSummary derives totals from the share ledger and the processed
	// transactions. Pending, included and paid amounts are disjoint.
	RevenueSummary(ctx context.Context, req SummaryRequest) (*Summary, error)
}

type SummaryRequest struct {
	FromMonth string `form:"from_month"`
	ToMonth   string `form:"to_month"`
}

// StatusTotals splits provider earnings by settlement state.
type StatusTotals struct {
	Pending  int64 `json:"pending"`
	Included int64 `json:"included"`
	Paid     int64 `json:"paid"`
}

func (t StatusTotals) Sum() int64 { return t.Pending + t.Included + t.Paid }

func (t *StatusTotals) add(o StatusTotals) {
	t.Pending += o.Pending
	t.Included += o.Included
	t.Paid += o.Paid
}

// RevenueTotals are the gross figures of processed transactions.
type RevenueTotals struct {
	Transactions  int64 `json:"transactions"`
	GrossAmount   int64 `json:"gross_amount"`
	ProviderShare int64 `json:"provider_share"`
	AdminShare    int64 `json:"admin_share"`
}

func (t *RevenueTotals) add(o RevenueTotals) {
	t.Transactions += o.Transactions
	t.GrossAmount += o.GrossAmount
	t.ProviderShare += o.ProviderShare
	t.AdminShare += o.AdminShare
}

type MonthSummary struct {
	MonthYear period.MonthYear `json:"month"`
	RevenueTotals
	Earnings StatusTotals `json:"earnings"`
}

type PackageSummary struct {
	PackageType string `json:"package_type"`
	RevenueTotals
	Earnings StatusTotals `json:"earnings"`
}

type ProviderSummary struct {
	ProviderID string       `json:"provider_id"`
	ShareCount int64        `json:"share_count"`
	Earnings   StatusTotals `json:"earnings"`
}

type Summary struct {
	FromMonth     period.MonthYear  `json:"from_month"`
	ToMonth       period.MonthYear  `json:"to_month"`
	Revenue       RevenueTotals     `json:"revenue"`
	Earnings      StatusTotals      `json:"earnings"`
	ByMonth       []MonthSummary    `json:"by_month"`
	ByPackageType []PackageSummary  `json:"by_package_type"`
	ByProvider    []ProviderSummary `json:"by_provider"`
}

// Accumulate fills the overall totals from the per-month rows.
func (s *Summary) Accumulate() {
	s.Revenue = RevenueTotals{}
	s.Earnings = StatusTotals{}
	for _, m := range s.ByMonth {
		s.Revenue.add(m.RevenueTotals)
		s.Earnings.add(m.Earnings)
	}
}

var ErrInvalidRange = errors.New("invalid_month_range")

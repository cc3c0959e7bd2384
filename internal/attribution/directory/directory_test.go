package directory

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/revenueshare/internal/attribution/domain"
	"github.com/smallbiznis/revenueshare/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListApprovedProvidersHonoursCoverageAndWindow(t *testing.T) {
	db := dbtest.Open(t, &ProviderDatasetApproval{})
	ctx := context.Background()

	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	approvals := []ProviderDatasetApproval{
		{ID: 1, ProviderID: "national-1", DatasetID: "d1", Coverage: CoverageNational, ApprovedAt: jan},
		{ID: 2, ProviderID: "jakarta-1", DatasetID: "d2", Coverage: CoverageProvincial, Province: "DKI Jakarta", ApprovedAt: jan},
		{ID: 3, ProviderID: "jakarta-1", DatasetID: "d3", Coverage: CoverageProvincial, Province: "DKI Jakarta", ApprovedAt: jan},
		{ID: 4, ProviderID: "bali-1", DatasetID: "d4", Coverage: CoverageProvincial, Province: "Bali", ApprovedAt: jan},
		{ID: 5, ProviderID: "late-1", DatasetID: "d5", Coverage: CoverageNational, ApprovedAt: jun},
		{ID: 6, ProviderID: "revoked-1", DatasetID: "d6", Coverage: CoverageNational, ApprovedAt: jan, RevokedAt: &jun},
	}
	require.NoError(t, db.Create(&approvals).Error)

	dir := NewProviderDirectory(db)
	march := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	national, err := dir.ListApprovedProviders(ctx, domain.ApprovalQuery{At: march})
	require.NoError(t, err)
	assert.Equal(t, []string{"national-1", "revoked-1"}, national)

	jakarta, err := dir.ListApprovedProviders(ctx, domain.ApprovalQuery{Province: "dki jakarta", At: march})
	require.NoError(t, err)
	assert.Equal(t, []string{"jakarta-1", "national-1", "revoked-1"}, jakarta)

	july := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	national, err = dir.ListApprovedProviders(ctx, domain.ApprovalQuery{At: july})
	require.NoError(t, err)
	assert.Equal(t, []string{"late-1", "national-1"}, national)
}

func TestRowContributionsSumsPerProvider(t *testing.T) {
	db := dbtest.Open(t, &PurchaseRowContribution{})
	ctx := context.Background()

	require.NoError(t, db.Create(&[]PurchaseRowContribution{
		{TransactionID: "txn-1", ProviderID: "a", DatasetID: "d1", RowCount: 400},
		{TransactionID: "txn-1", ProviderID: "a", DatasetID: "d2", RowCount: 300},
		{TransactionID: "txn-1", ProviderID: "b", DatasetID: "d3", RowCount: 300},
		{TransactionID: "txn-2", ProviderID: "b", DatasetID: "d3", RowCount: 10},
	}).Error)

	got, err := NewRowContributionSource(db).RowContributions(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.RowContribution{
		{ProviderID: "a", Rows: 700},
		{ProviderID: "b", Rows: 300},
	}, got)
}

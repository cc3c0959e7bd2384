package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/revenueshare/internal/attribution/domain"
	"github.com/smallbiznis/revenueshare/internal/attribution/domain/mock"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var completedAt = time.Date(2025, 10, 14, 9, 30, 0, 0, time.UTC)

func TestDataPackageWeightsByContributedRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	rows := mock.NewMockRowContributionSource(ctrl)
	rows.EXPECT().RowContributions(gomock.Any(), "txn-1").Return([]domain.RowContribution{
		{ProviderID: "prov-b", Rows: 300},
		{ProviderID: "prov-a", Rows: 700},
		{ProviderID: "prov-c", Rows: 0},
	}, nil)

	weights, err := NewDataPackage(rows).ComputeAttribution(context.Background(), domain.Purchase{
		TransactionID: "txn-1",
		PackageType:   packagetype.Data,
		CompletedAt:   completedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Weight{
		{ProviderID: "prov-a", Numerator: 7, Denominator: 10},
		{ProviderID: "prov-b", Numerator: 3, Denominator: 10},
	}, weights)
}

func TestDataPackageMergesRowsAcrossDatasetsOfOneProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	rows := mock.NewMockRowContributionSource(ctrl)
	rows.EXPECT().RowContributions(gomock.Any(), "txn-2").Return([]domain.RowContribution{
		{ProviderID: "prov-a", Rows: 1},
		{ProviderID: "prov-a", Rows: 1},
		{ProviderID: "prov-b", Rows: 1},
	}, nil)

	weights, err := NewDataPackage(rows).ComputeAttribution(context.Background(), domain.Purchase{TransactionID: "txn-2"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Weight{
		{ProviderID: "prov-a", Numerator: 2, Denominator: 3},
		{ProviderID: "prov-b", Numerator: 1, Denominator: 3},
	}, weights)
}

func TestDataPackageWithoutRowsHasNoEligibleProviders(t *testing.T) {
	ctrl := gomock.NewController(t)
	rows := mock.NewMockRowContributionSource(ctrl)
	rows.EXPECT().RowContributions(gomock.Any(), "txn-3").Return([]domain.RowContribution{
		{ProviderID: "prov-a", Rows: 0},
	}, nil)

	weights, err := NewDataPackage(rows).ComputeAttribution(context.Background(), domain.Purchase{TransactionID: "txn-3"})
	assert.ErrorIs(t, err, domain.ErrNoEligibleProviders)
	assert.Empty(t, weights)
}

func TestDataPackageRejectsNegativeRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	rows := mock.NewMockRowContributionSource(ctrl)
	rows.EXPECT().RowContributions(gomock.Any(), "txn-4").Return([]domain.RowContribution{
		{ProviderID: "prov-a", Rows: -5},
	}, nil)

	_, err := NewDataPackage(rows).ComputeAttribution(context.Background(), domain.Purchase{TransactionID: "txn-4"})
	assert.ErrorIs(t, err, domain.ErrInvalidRowContribution)
}

func TestSubscriptionPackageSplitsEquallyWithinProvince(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mock.NewMockProviderDirectory(ctrl)
	dir.EXPECT().ListApprovedProviders(gomock.Any(), domain.ApprovalQuery{Province: "DKI Jakarta", At: completedAt}).
		Return([]string{"p4", "p2", "p3", "p1", "p2"}, nil)

	weights, err := NewSubscriptionPackage(dir).ComputeAttribution(context.Background(), domain.Purchase{
		TransactionID: "txn-5",
		PackageType:   packagetype.Subscription,
		Province:      " DKI Jakarta ",
		CompletedAt:   completedAt,
	})
	require.NoError(t, err)
	require.Len(t, weights, 4)
	for i, id := range []string{"p1", "p2", "p3", "p4"} {
		assert.Equal(t, domain.Weight{ProviderID: id, Numerator: 1, Denominator: 4}, weights[i])
	}
}

func TestSubscriptionPackageRequiresProvince(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mock.NewMockProviderDirectory(ctrl)

	_, err := NewSubscriptionPackage(dir).ComputeAttribution(context.Background(), domain.Purchase{TransactionID: "txn-6"})
	assert.ErrorIs(t, err, domain.ErrProvinceRequired)
}

func TestAPIPackageUsesNationalApprovals(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mock.NewMockProviderDirectory(ctrl)
	dir.EXPECT().ListApprovedProviders(gomock.Any(), domain.ApprovalQuery{At: completedAt}).
		Return([]string{"p1", "p2", "p3"}, nil)

	weights, err := NewAPIPackage(dir).ComputeAttribution(context.Background(), domain.Purchase{
		TransactionID: "txn-7",
		PackageType:   packagetype.API,
		CompletedAt:   completedAt,
	})
	require.NoError(t, err)
	assert.Len(t, weights, 3)
	assert.Equal(t, int64(3), weights[0].Denominator)
}

func TestAPIPackagePropagatesDirectoryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mock.NewMockProviderDirectory(ctrl)
	boom := errors.New("directory unavailable")
	dir.EXPECT().ListApprovedProviders(gomock.Any(), gomock.Any()).Return(nil, boom)

	_, err := NewAPIPackage(dir).ComputeAttribution(context.Background(), domain.Purchase{TransactionID: "txn-8"})
	assert.ErrorIs(t, err, boom)
}

func TestAPIPackageWithoutProvidersHasNoEligibleProviders(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mock.NewMockProviderDirectory(ctrl)
	dir.EXPECT().ListApprovedProviders(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := NewAPIPackage(dir).ComputeAttribution(context.Background(), domain.Purchase{TransactionID: "txn-9"})
	assert.ErrorIs(t, err, domain.ErrNoEligibleProviders)
}

func TestRegistryResolvesOneStrategyPerPackageType(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mock.NewMockProviderDirectory(ctrl)
	rows := mock.NewMockRowContributionSource(ctrl)

	reg, err := NewRegistry(NewDataPackage(rows), NewSubscriptionPackage(dir), NewAPIPackage(dir))
	require.NoError(t, err)

	for _, pkg := range packagetype.All {
		s, err := reg.For(pkg)
		require.NoError(t, err)
		assert.Equal(t, pkg, s.PackageType())
	}

	_, err = reg.For(packagetype.Type("bundle"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedPackageType)

	_, err = NewRegistry(NewAPIPackage(dir), NewAPIPackage(dir))
	assert.ErrorIs(t, err, domain.ErrDuplicateStrategy)
}

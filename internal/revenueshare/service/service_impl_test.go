package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/revenueshare/internal/clock"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
	"github.com/smallbiznis/revenueshare/internal/period"
	sharedomain "github.com/smallbiznis/revenueshare/internal/revenueshare/domain"
	"github.com/smallbiznis/revenueshare/internal/revenueshare/repository"
	"github.com/smallbiznis/revenueshare/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	svc   sharedomain.Service
	clock *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t, &sharedomain.RevenueShare{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	return &fixture{
		db:    db,
		clock: fc,
		svc: New(Params{
			DB:    db,
			Log:   zap.NewNop(),
			GenID: node,
			Clock: fc,
			Repo:  repository.Provide(),
		}),
	}
}

func dataRequest(txnID string, at time.Time) sharedomain.RecordRequest {
	return sharedomain.RecordRequest{
		TransactionID:             txnID,
		PackageType:               packagetype.Data,
		TotalAmount:               1_000_000,
		ProviderCommissionPercent: decimal.NewFromInt(70),
		PricingSnapshotID:         7,
		Weights: []sharedomain.WeightInput{
			{ProviderID: "prov-a", Numerator: 7, Denominator: 10},
			{ProviderID: "prov-b", Numerator: 3, Denominator: 10},
		},
		CalculatedAt: at,
	}
}

func TestRecordPersistsPendingShares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.Record(ctx, nil, dataRequest("txn-1", f.clock.Now()))
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, int64(700_000), result.Split.ProviderShareTotal)
	assert.Equal(t, int64(300_000), result.Split.AdminShare)

	shares, err := f.svc.ListByTransaction(ctx, "txn-1")
	require.NoError(t, err)
	require.Len(t, shares, 2)

	var gross int64
	for _, share := range shares {
		assert.Equal(t, sharedomain.StatusPending, share.PayoutStatus)
		assert.Equal(t, period.MonthYear("2025-03"), share.MonthYear)
		assert.Nil(t, share.PayoutID)
		assert.Equal(t, share.TotalAmount, share.ProviderShare+share.AdminShare)
		gross += share.TotalAmount
	}
	assert.Equal(t, int64(1_000_000), gross)
	assert.Equal(t, int64(490_000), shares[0].ProviderShare)
	assert.Equal(t, int64(210_000), shares[1].ProviderShare)
}

func TestRecordIsIdempotentPerTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Record(ctx, nil, dataRequest("txn-1", f.clock.Now()))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	second, err := f.svc.Record(ctx, nil, dataRequest("txn-1", f.clock.Now()))
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Split.ProviderShareTotal, second.Split.ProviderShareTotal)
	assert.Equal(t, first.Split.AdminShare, second.Split.AdminShare)

	var count int64
	require.NoError(t, f.db.Model(&sharedomain.RevenueShare{}).Where("transaction_id = ?", "txn-1").Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRecordWithoutProvidersWritesNoRows(t *testing.T) {
	f := newFixture(t)
	req := dataRequest("txn-empty", f.clock.Now())
	req.Weights = nil

	result, err := f.svc.Record(context.Background(), nil, req)
	require.NoError(t, err)
	assert.Empty(t, result.Shares)
	assert.Equal(t, int64(1_000_000), result.Split.AdminShare)
}

func TestClaimAndPayLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Record(ctx, nil, dataRequest("txn-1", f.clock.Now()))
	require.NoError(t, err)

	month := period.MonthYear("2025-03")
	providers, err := f.svc.ProvidersWithPending(ctx, nil, month)
	require.NoError(t, err)
	assert.Equal(t, []string{"prov-a", "prov-b"}, providers)

	due, err := f.svc.PendingDue(ctx, nil, "prov-a", month)
	require.NoError(t, err)
	assert.Equal(t, int64(490_000), due)

	payoutID := snowflake.ID(99)
	claimed, err := f.svc.ClaimPending(ctx, f.db, "prov-a", month, payoutID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claimed)

	// A second claim finds nothing left to take.
	claimed, err = f.svc.ClaimPending(ctx, f.db, "prov-a", month, snowflake.ID(100))
	require.NoError(t, err)
	assert.Zero(t, claimed)

	sum, err := f.svc.SumByPayout(ctx, f.db, payoutID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.ShareCount)
	assert.Equal(t, int64(490_000), sum.TotalDue)

	due, err = f.svc.PendingDue(ctx, nil, "prov-a", month)
	require.NoError(t, err)
	assert.Zero(t, due)

	paid, err := f.svc.MarkPaid(ctx, f.db, payoutID, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), paid)

	resp, err := f.svc.ListByProvider(ctx, sharedomain.ListRequest{ProviderID: "prov-a", Status: "paid"})
	require.NoError(t, err)
	require.Len(t, resp.Shares, 1)
	require.NotNil(t, resp.Shares[0].PaidAt)
}

func TestListByProviderPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"txn-1", "txn-2", "txn-3"} {
		_, err := f.svc.Record(ctx, nil, dataRequest(id, f.clock.Now()))
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	first, err := f.svc.ListByProvider(ctx, sharedomain.ListRequest{ProviderID: "prov-a", PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Shares, 2)
	assert.True(t, first.PageInfo.HasMore)
	assert.Equal(t, "txn-3", first.Shares[0].TransactionID)

	second, err := f.svc.ListByProvider(ctx, sharedomain.ListRequest{
		ProviderID: "prov-a",
		PageSize:   2,
		PageToken:  first.PageInfo.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, second.Shares, 1)
	assert.False(t, second.PageInfo.HasMore)
	assert.Equal(t, "txn-1", second.Shares[0].TransactionID)
}

func TestListByProviderValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListByProvider(ctx, sharedomain.ListRequest{})
	assert.ErrorIs(t, err, sharedomain.ErrInvalidProvider)

	_, err = f.svc.ListByProvider(ctx, sharedomain.ListRequest{ProviderID: "p", Status: "settled"})
	assert.ErrorIs(t, err, sharedomain.ErrInvalidStatus)

	_, err = f.svc.ListByProvider(ctx, sharedomain.ListRequest{ProviderID: "p", From: "2025-03-10", To: "2025-03-01"})
	assert.ErrorIs(t, err, sharedomain.ErrInvalidRange)

	resp, err := f.svc.ListByProvider(ctx, sharedomain.ListRequest{ProviderID: "p", From: "2025-03-01", To: "2025-03-31"})
	require.NoError(t, err)
	assert.Empty(t, resp.Shares)
}

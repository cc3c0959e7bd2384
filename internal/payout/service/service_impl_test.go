package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/revenueshare/internal/clock"
	"github.com/smallbiznis/revenueshare/internal/config"
	obscontext "github.com/smallbiznis/revenueshare/internal/observability/context"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
	payoutdomain "github.com/smallbiznis/revenueshare/internal/payout/domain"
	"github.com/smallbiznis/revenueshare/internal/payout/repository"
	"github.com/smallbiznis/revenueshare/internal/period"
	sharedomain "github.com/smallbiznis/revenueshare/internal/revenueshare/domain"
	sharerepo "github.com/smallbiznis/revenueshare/internal/revenueshare/repository"
	shareservice "github.com/smallbiznis/revenueshare/internal/revenueshare/service"
	"github.com/smallbiznis/revenueshare/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const month = "2025-10"

type fixture struct {
	db     *gorm.DB
	clock  *clock.FakeClock
	shares sharedomain.Service
	svc    payoutdomain.Service
	node   *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}
	f.db = dbtest.Open(t,
		&sharedomain.RevenueShare{},
		&payoutdomain.Payout{},
		&payoutdomain.PayoutStatusChange{},
		&payoutdomain.PayoutGenerationRun{},
	)
	var err error
	f.node, err = snowflake.NewNode(2)
	require.NoError(t, err)
	f.clock = clock.NewFakeClock(time.Date(2025, 10, 5, 8, 0, 0, 0, time.UTC))
	f.shares = shareservice.New(shareservice.Params{
		DB:    f.db,
		Log:   zap.NewNop(),
		GenID: f.node,
		Clock: f.clock,
		Repo:  sharerepo.Provide(),
	})
	f.svc = f.newService(f.shares)
	return f
}

func (f *fixture) newService(shares sharedomain.Service) payoutdomain.Service {
	cfg := config.DefaultPayoutConfig()
	cfg.ConflictBackoff = time.Millisecond
	cfg.ConflictBackoffMax = 5 * time.Millisecond
	return New(Params{
		DB:     f.db,
		Log:    zap.NewNop(),
		GenID:  f.node,
		Clock:  f.clock,
		Repo:   repository.Provide(),
		Shares: shares,
		Config: config.NewStaticPayoutConfigHolder(cfg),
	})
}

// earn records a single-provider transaction paying providerShare.
func (f *fixture) earn(t *testing.T, txnID, providerID string, providerShare int64) {
	t.Helper()
	_, err := f.shares.Record(context.Background(), nil, sharedomain.RecordRequest{
		TransactionID:             txnID,
		PackageType:               packagetype.API,
		TotalAmount:               providerShare * 2,
		ProviderCommissionPercent: decimal.NewFromInt(50),
		PricingSnapshotID:         1,
		Weights:                   []sharedomain.WeightInput{{ProviderID: providerID, Numerator: 1, Denominator: 1}},
		CalculatedAt:              f.clock.Now(),
	})
	require.NoError(t, err)
}

func (f *fixture) generate(t *testing.T, providers ...string) *payoutdomain.GenerationReport {
	t.Helper()
	report, err := f.svc.Generate(context.Background(), payoutdomain.GenerateRequest{MonthYear: month, ProviderIDs: providers})
	require.NoError(t, err)
	return report
}

func resultOf(t *testing.T, report *payoutdomain.GenerationReport, providerID string) payoutdomain.ProviderResult {
	t.Helper()
	for _, res := range report.Results {
		if res.ProviderID == providerID {
			return res
		}
	}
	t.Fatalf("no result for provider %s", providerID)
	return payoutdomain.ProviderResult{}
}

func (f *fixture) payoutCount(t *testing.T, providerID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&payoutdomain.Payout{}).Where("provider_id = ?", providerID).Count(&n).Error)
	return n
}

func (f *fixture) shareStatuses(t *testing.T, providerID string) map[sharedomain.PayoutStatus]int {
	t.Helper()
	var shares []sharedomain.RevenueShare
	require.NoError(t, f.db.Where("provider_id = ?", providerID).Find(&shares).Error)
	out := map[sharedomain.PayoutStatus]int{}
	for _, s := range shares {
		out[s.PayoutStatus]++
	}
	return out
}

func TestGenerateTwiceLeavesPayoutUnchanged(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "txn-1", "prov-a", 40_000)
	f.earn(t, "txn-2", "prov-a", 60_000)

	first := resultOf(t, f.generate(t), "prov-a")
	assert.Equal(t, payoutdomain.OutcomeCreated, first.Outcome)
	assert.Equal(t, int64(100_000), first.TotalDue)
	assert.Equal(t, int64(2), first.Claimed)
	assert.Equal(t, 1, first.Sequence)

	second := resultOf(t, f.generate(t), "prov-a")
	assert.Equal(t, payoutdomain.OutcomeUnchanged, second.Outcome)
	assert.Equal(t, first.PayoutID, second.PayoutID)
	assert.Equal(t, first.TotalDue, second.TotalDue)
	assert.Equal(t, int64(1), f.payoutCount(t, "prov-a"))
	assert.Equal(t, map[sharedomain.PayoutStatus]int{sharedomain.StatusIncluded: 2}, f.shareStatuses(t, "prov-a"))
}

func TestGenerateRecomputesPendingPayout(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "txn-1", "prov-a", 40_000)
	first := resultOf(t, f.generate(t), "prov-a")

	f.clock.Advance(time.Hour)
	f.earn(t, "txn-2", "prov-a", 5_000)

	second := resultOf(t, f.generate(t), "prov-a")
	assert.Equal(t, payoutdomain.OutcomeUpdated, second.Outcome)
	assert.Equal(t, first.PayoutID, second.PayoutID)
	assert.Equal(t, int64(45_000), second.TotalDue)
	assert.Equal(t, int64(1), second.Claimed)
	assert.Equal(t, int64(1), f.payoutCount(t, "prov-a"))
}

func TestConcurrentGenerateCreatesSinglePayout(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "txn-1", "prov-a", 10_000)
	f.earn(t, "txn-2", "prov-b", 20_000)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Generate(context.Background(), payoutdomain.GenerateRequest{MonthYear: month})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), f.payoutCount(t, "prov-a"))
	assert.Equal(t, int64(1), f.payoutCount(t, "prov-b"))
	payouts, err := f.svc.List(context.Background(), payoutdomain.ListRequest{Month: month})
	require.NoError(t, err)
	require.Len(t, payouts, 2)
	assert.Equal(t, int64(10_000), payouts[0].TotalDue)
	assert.Equal(t, int64(20_000), payouts[1].TotalDue)
}

func TestCompleteTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "txn-1", "prov-a", 75_000)
	created := resultOf(t, f.generate(t), "prov-a")

	ctx := obscontext.WithActor(context.Background(), obscontext.Actor{ID: "u-1", Role: "finance"})
	done, err := f.svc.Complete(ctx, created.PayoutID, payoutdomain.CompleteRequest{
		TransactionRef: "TRF-001",
		BankAccount:    "BCA 123",
		PaymentMethod:  "bank_transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, payoutdomain.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, map[sharedomain.PayoutStatus]int{sharedomain.StatusPaid: 1}, f.shareStatuses(t, "prov-a"))

	_, err = f.svc.Complete(ctx, created.PayoutID, payoutdomain.CompleteRequest{TransactionRef: "TRF-002"})
	assert.ErrorIs(t, err, payoutdomain.ErrPayoutAlreadyCompleted)
	assert.True(t, payoutdomain.IsStateError(err))

	detail, err := f.svc.Get(context.Background(), created.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, "TRF-001", detail.Payout.TransactionRef)
	assert.Equal(t, payoutdomain.StatusCompleted, detail.Payout.Status)
	require.Len(t, detail.History, 2)
	assert.Equal(t, payoutdomain.StatusCompleted, detail.History[1].ToStatus)
	assert.Equal(t, "finance:u-1", detail.History[1].Actor)
}

func TestCompleteRequiresTransactionRef(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "txn-1", "prov-a", 75_000)
	created := resultOf(t, f.generate(t), "prov-a")

	_, err := f.svc.Complete(context.Background(), created.PayoutID, payoutdomain.CompleteRequest{TransactionRef: "  "})
	assert.ErrorIs(t, err, payoutdomain.ErrTransactionRefRequired)

	detail, err := f.svc.Get(context.Background(), created.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, payoutdomain.StatusPending, detail.Payout.Status)
	assert.Equal(t, map[sharedomain.PayoutStatus]int{sharedomain.StatusIncluded: 1}, f.shareStatuses(t, "prov-a"))
}

func TestCompleteGuardsExpectedTotalAndPaymentMethod(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "txn-1", "prov-a", 75_000)
	created := resultOf(t, f.generate(t), "prov-a")

	stale := int64(70_000)
	_, err := f.svc.Complete(context.Background(), created.PayoutID, payoutdomain.CompleteRequest{
		TransactionRef:   "TRF-1",
		ExpectedTotalDue: &stale,
	})
	assert.ErrorIs(t, err, payoutdomain.ErrTotalDueMismatch)

	_, err = f.svc.Complete(context.Background(), created.PayoutID, payoutdomain.CompleteRequest{
		TransactionRef: "TRF-1",
		PaymentMethod:  "cheque",
	})
	assert.ErrorIs(t, err, payoutdomain.ErrInvalidPaymentMethod)

	detail, err := f.svc.Get(context.Background(), created.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, payoutdomain.StatusPending, detail.Payout.Status)
}

func TestSharesAfterCompletionStartNewSequence(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "txn-1", "prov-a", 30_000)
	first := resultOf(t, f.generate(t), "prov-a")
	_, err := f.svc.Complete(context.Background(), first.PayoutID, payoutdomain.CompleteRequest{TransactionRef: "TRF-1"})
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	f.earn(t, "txn-2", "prov-a", 12_000)

	second := resultOf(t, f.generate(t), "prov-a")
	assert.Equal(t, payoutdomain.OutcomeCreated, second.Outcome)
	assert.Equal(t, 2, second.Sequence)
	assert.NotEqual(t, first.PayoutID, second.PayoutID)
	assert.Equal(t, int64(12_000), second.TotalDue)

	completed, err := f.svc.Get(context.Background(), first.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, int64(30_000), completed.Payout.TotalDue)
}

func TestProcessingPayoutIsNotTouched(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "txn-1", "prov-a", 30_000)
	first := resultOf(t, f.generate(t), "prov-a")

	processing, err := f.svc.MarkProcessing(context.Background(), first.PayoutID, payoutdomain.MarkProcessingRequest{PaymentMethod: "e_wallet"})
	require.NoError(t, err)
	assert.Equal(t, "e_wallet", processing.PaymentMethod)

	f.earn(t, "txn-2", "prov-a", 1_000)
	res := resultOf(t, f.generate(t), "prov-a")
	assert.Equal(t, payoutdomain.OutcomeSkippedProcessing, res.Outcome)
	assert.Equal(t, int64(30_000), res.TotalDue)
	assert.Equal(t, map[sharedomain.PayoutStatus]int{
		sharedomain.StatusIncluded: 1,
		sharedomain.StatusPending:  1,
	}, f.shareStatuses(t, "prov-a"))
}

func TestFailRetryAndReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "txn-1", "prov-a", 30_000)
	created := resultOf(t, f.generate(t), "prov-a")

	_, err := f.svc.Fail(ctx, created.PayoutID, payoutdomain.FailRequest{})
	assert.ErrorIs(t, err, payoutdomain.ErrFailureReasonRequired)

	failed, err := f.svc.Fail(ctx, created.PayoutID, payoutdomain.FailRequest{Reason: "account closed"})
	require.NoError(t, err)
	assert.Equal(t, payoutdomain.StatusFailed, failed.Status)
	assert.Equal(t, "account closed", failed.FailureReason)

	_, err = f.svc.Complete(ctx, created.PayoutID, payoutdomain.CompleteRequest{TransactionRef: "TRF-1"})
	assert.ErrorIs(t, err, payoutdomain.ErrInvalidTransition)

	retried, err := f.svc.Retry(ctx, created.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, payoutdomain.StatusPending, retried.Status)
	assert.Empty(t, retried.FailureReason)

	_, err = f.svc.Retry(ctx, created.PayoutID)
	assert.ErrorIs(t, err, payoutdomain.ErrInvalidTransition)

	// A failed payout is reopened by generation rather than duplicated.
	_, err = f.svc.Fail(ctx, created.PayoutID, payoutdomain.FailRequest{Reason: "bank timeout"})
	require.NoError(t, err)
	f.earn(t, "txn-2", "prov-a", 5_000)

	res := resultOf(t, f.generate(t), "prov-a")
	assert.Equal(t, payoutdomain.OutcomeReopened, res.Outcome)
	assert.Equal(t, created.PayoutID, res.PayoutID)
	assert.Equal(t, int64(35_000), res.TotalDue)
	assert.Equal(t, int64(1), f.payoutCount(t, "prov-a"))

	detail, err := f.svc.Get(ctx, created.PayoutID)
	require.NoError(t, err)
	assert.Len(t, detail.History, 5)
	assert.Zero(t, detail.UnclaimedDue)

	f.earn(t, "txn-3", "prov-a", 7_000)
	detail, err = f.svc.Get(ctx, created.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, int64(7_000), detail.UnclaimedDue)
	assert.Equal(t, int64(35_000), detail.Payout.TotalDue)
}

func TestGenerateNothingDueWritesNoPayout(t *testing.T) {
	f := newFixture(t)
	res := resultOf(t, f.generate(t, "ghost"), "ghost")
	assert.Equal(t, payoutdomain.OutcomeNothingDue, res.Outcome)
	assert.Zero(t, f.payoutCount(t, "ghost"))
}

func TestGenerateSkipsSharesRoundedToZero(t *testing.T) {
	f := newFixture(t)
	_, err := f.shares.Record(context.Background(), nil, sharedomain.RecordRequest{
		TransactionID:             "txn-tiny",
		PackageType:               packagetype.API,
		TotalAmount:               1,
		ProviderCommissionPercent: decimal.NewFromInt(70),
		PricingSnapshotID:         1,
		Weights: []sharedomain.WeightInput{
			{ProviderID: "p1", Numerator: 1, Denominator: 3},
			{ProviderID: "p2", Numerator: 1, Denominator: 3},
			{ProviderID: "p3", Numerator: 1, Denominator: 3},
		},
		CalculatedAt: f.clock.Now(),
	})
	require.NoError(t, err)

	report := f.generate(t)
	assert.Empty(t, report.Results)

	// Asking for the provider explicitly still writes nothing.
	res := resultOf(t, f.generate(t, "p1"), "p1")
	assert.Equal(t, payoutdomain.OutcomeNothingDue, res.Outcome)
	for _, p := range []string{"p1", "p2", "p3"} {
		assert.Zero(t, f.payoutCount(t, p))
		assert.Equal(t, 1, f.shareStatuses(t, p)[sharedomain.StatusPending])
	}
}

type flakyShares struct {
	sharedomain.Service
	mu       sync.Mutex
	failFor  map[string]error
	failures map[string]int
}

func (s *flakyShares) ClaimPending(ctx context.Context, db *gorm.DB, providerID string, m period.MonthYear, payoutID snowflake.ID) (int64, error) {
	s.mu.Lock()
	err, ok := s.failFor[providerID]
	if ok && s.failures[providerID] > 0 {
		s.failures[providerID]--
		s.mu.Unlock()
		return 0, err
	}
	s.mu.Unlock()
	return s.Service.ClaimPending(ctx, db, providerID, m, payoutID)
}

func TestGenerateIsolatesProviderFailures(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "txn-1", "prov-bad", 10_000)
	f.earn(t, "txn-2", "prov-good", 20_000)

	flaky := &flakyShares{
		Service:  f.shares,
		failFor:  map[string]error{"prov-bad": errors.New("disk full")},
		failures: map[string]int{"prov-bad": 100},
	}
	svc := f.newService(flaky)

	report, err := svc.Generate(context.Background(), payoutdomain.GenerateRequest{MonthYear: month})
	require.NoError(t, err)
	assert.Equal(t, 1, report.FailedCount())

	bad := resultOf(t, report, "prov-bad")
	assert.Equal(t, payoutdomain.OutcomeFailed, bad.Outcome)
	assert.Contains(t, bad.Error, "disk full")
	assert.Equal(t, 1, bad.Attempts)
	assert.Zero(t, f.payoutCount(t, "prov-bad"))
	assert.Equal(t, map[sharedomain.PayoutStatus]int{sharedomain.StatusPending: 1}, f.shareStatuses(t, "prov-bad"))

	good := resultOf(t, report, "prov-good")
	assert.Equal(t, payoutdomain.OutcomeCreated, good.Outcome)

	// The failed provider can be retried on its own.
	retry, err := f.svc.Generate(context.Background(), payoutdomain.GenerateRequest{MonthYear: month, ProviderIDs: []string{"prov-bad"}})
	require.NoError(t, err)
	require.Len(t, retry.Results, 1)
	assert.Equal(t, payoutdomain.OutcomeCreated, retry.Results[0].Outcome)
}

func TestGenerateRetriesConflicts(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "txn-1", "prov-a", 10_000)

	flaky := &flakyShares{
		Service:  f.shares,
		failFor:  map[string]error{"prov-a": errors.New("database is locked")},
		failures: map[string]int{"prov-a": 2},
	}
	svc := f.newService(flaky)

	report, err := svc.Generate(context.Background(), payoutdomain.GenerateRequest{MonthYear: month})
	require.NoError(t, err)
	res := resultOf(t, report, "prov-a")
	assert.Equal(t, payoutdomain.OutcomeCreated, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, int64(1), f.payoutCount(t, "prov-a"))
}

func TestGenerateGivesUpAfterConfiguredRetries(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "txn-1", "prov-a", 10_000)

	flaky := &flakyShares{
		Service:  f.shares,
		failFor:  map[string]error{"prov-a": errors.New("database is locked")},
		failures: map[string]int{"prov-a": 100},
	}
	svc := f.newService(flaky)

	report, err := svc.Generate(context.Background(), payoutdomain.GenerateRequest{MonthYear: month})
	require.NoError(t, err)
	res := resultOf(t, report, "prov-a")
	assert.Equal(t, payoutdomain.OutcomeFailed, res.Outcome)
	assert.Equal(t, config.DefaultPayoutConfig().ConflictRetries+1, res.Attempts)
	assert.Contains(t, res.Error, "database is locked")
	assert.Zero(t, f.payoutCount(t, "prov-a"))
}

func TestConflictBackOffUsesPayoutConfig(t *testing.T) {
	cfg := config.DefaultPayoutConfig()
	cfg.ConflictBackoff = 20 * time.Millisecond
	cfg.ConflictBackoffMax = 80 * time.Millisecond

	b := conflictBackOff(cfg)
	assert.Equal(t, 20*time.Millisecond, b.InitialInterval)
	assert.Equal(t, 80*time.Millisecond, b.MaxInterval)
	for i := 0; i < 10; i++ {
		assert.LessOrEqual(t, b.NextBackOff(), 96*time.Millisecond)
	}

	cfg.ConflictBackoffMax = time.Millisecond
	assert.Equal(t, 20*time.Millisecond, conflictBackOff(cfg).MaxInterval)
}

func TestGetRunReturnsPersistedReport(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "txn-1", "prov-a", 10_000)
	report := f.generate(t)

	stored, err := f.svc.GetRun(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, stored.RunID)
	assert.Equal(t, period.MonthYear(month), stored.MonthYear)
	assert.Equal(t, payoutdomain.TriggerManual, stored.Trigger)
	require.Len(t, stored.Results, 1)
	assert.Equal(t, payoutdomain.OutcomeCreated, stored.Results[0].Outcome)

	_, err = f.svc.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, payoutdomain.ErrRunNotFound)
}

func TestLedgerInputValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, "abc")
	assert.ErrorIs(t, err, payoutdomain.ErrInvalidPayoutID)

	_, err = f.svc.Get(ctx, "12345")
	assert.ErrorIs(t, err, payoutdomain.ErrPayoutNotFound)

	_, err = f.svc.List(ctx, payoutdomain.ListRequest{Status: "done"})
	assert.ErrorIs(t, err, payoutdomain.ErrInvalidStatus)

	_, err = f.svc.List(ctx, payoutdomain.ListRequest{Month: "2025-13"})
	assert.ErrorIs(t, err, period.ErrInvalidMonth)

	_, err = f.svc.Generate(ctx, payoutdomain.GenerateRequest{MonthYear: "October"})
	assert.ErrorIs(t, err, period.ErrInvalidMonth)
}

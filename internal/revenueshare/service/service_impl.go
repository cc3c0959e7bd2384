package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenueshare/internal/clock"
	obslogger "github.com/smallbiznis/revenueshare/internal/observability/logger"
	"github.com/smallbiznis/revenueshare/internal/observability/metrics"
	"github.com/smallbiznis/revenueshare/internal/period"
	sharedomain "github.com/smallbiznis/revenueshare/internal/revenueshare/domain"
	"github.com/smallbiznis/revenueshare/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    sharedomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    sharedomain.Repository
	metrics *metrics.Metrics
}

func New(p Params) sharedomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("revenueshare.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, db *gorm.DB, req sharedomain.RecordRequest) (*sharedomain.RecordResult, error) {
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if req.TransactionID == "" || !req.PackageType.Valid() {
		return nil, sharedomain.ErrInvalidTransaction
	}
	if db == nil {
		db = s.db
	}
	calculatedAt := req.CalculatedAt
	if calculatedAt.IsZero() {
		calculatedAt = s.clock.Now()
	}
	calculatedAt = calculatedAt.UTC()

	existing, err := s.repo.ListByTransaction(ctx, db, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return replayed(req.TotalAmount, existing), nil
	}

	split, err := sharedomain.CalculateSplit(req.TotalAmount, req.ProviderCommissionPercent, req.Weights)
	if err != nil {
		return nil, err
	}

	month := period.Of(calculatedAt)
	shares := make([]sharedomain.RevenueShare, 0, len(split.Lines))
	for _, line := range split.Lines {
		shares = append(shares, sharedomain.RevenueShare{
			ID:                s.genID.Generate(),
			TransactionID:     req.TransactionID,
			ProviderID:        line.ProviderID,
			PackageType:       req.PackageType,
			TotalAmount:       line.RowTotal(),
			ProviderShare:     line.ProviderShare,
			AdminShare:        line.AdminSlice,
			WeightNumerator:   line.Numerator,
			WeightDenominator: line.Denominator,
			PricingSnapshotID: req.PricingSnapshotID,
			MonthYear:         month,
			CalculatedAt:      calculatedAt,
			PayoutStatus:      sharedomain.StatusPending,
		})
	}

	inserted, err := s.repo.InsertShares(ctx, db, shares)
	if err != nil {
		return nil, fmt.Errorf("insert revenue shares: %w", err)
	}
	if inserted != int64(len(shares)) {
		// Another delivery of the same transaction got there first.
		stored, err := s.repo.ListByTransaction(ctx, db, req.TransactionID)
		if err != nil {
			return nil, err
		}
		if len(stored) != len(shares) {
			return nil, sharedomain.ErrShareMismatch
		}
		return replayed(req.TotalAmount, stored), nil
	}

	s.metrics.RecordShares(ctx, string(req.PackageType), len(shares), split.ProviderShareTotal)
	obslogger.WithContext(ctx, s.log).Debug("revenue shares recorded",
		zap.String("transaction_id", req.TransactionID),
		zap.Int("share_count", len(shares)),
		zap.Int64("provider_share_total", split.ProviderShareTotal),
		zap.Int64("admin_share", split.AdminShare),
		zap.String("month_year", month.String()),
	)
	return &sharedomain.RecordResult{Split: split, Shares: shares}, nil
}

func replayed(totalAmount int64, stored []sharedomain.RevenueShare) *sharedomain.RecordResult {
	split := sharedomain.Split{TotalAmount: totalAmount}
	for _, share := range stored {
		split.ProviderShareTotal += share.ProviderShare
		split.Lines = append(split.Lines, sharedomain.SplitLine{
			ProviderID:    share.ProviderID,
			Numerator:     share.WeightNumerator,
			Denominator:   share.WeightDenominator,
			ProviderShare: share.ProviderShare,
			AdminSlice:    share.AdminShare,
		})
	}
	split.AdminShare = totalAmount - split.ProviderShareTotal
	return &sharedomain.RecordResult{Split: split, Shares: stored, Replayed: true}
}

func (s *Service) ListByProvider(ctx context.Context, req sharedomain.ListRequest) (*sharedomain.ListResponse, error) {
	providerID := strings.TrimSpace(req.ProviderID)
	if providerID == "" {
		return nil, sharedomain.ErrInvalidProvider
	}

	filter := sharedomain.ListFilter{ProviderID: providerID}
	var err error
	if filter.From, err = parseBound(req.From, false); err != nil {
		return nil, err
	}
	if filter.To, err = parseBound(req.To, true); err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, sharedomain.ErrInvalidRange
	}
	if status := strings.TrimSpace(strings.ToLower(req.Status)); status != "" {
		filter.Status = sharedomain.PayoutStatus(status)
		if !filter.Status.Valid() {
			return nil, sharedomain.ErrInvalidStatus
		}
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, pagination.ErrInvalidToken
		}
		filter.After = &sharedomain.ListCursor{CalculatedAt: cursor.At, ID: id}
	}

	limit := pagination.Limit(req.PageSize)
	filter.Limit = limit + 1

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	page, info, err := pagination.Page(items, limit, func(share sharedomain.RevenueShare) pagination.Cursor {
		return pagination.Cursor{ID: share.ID.String(), At: share.CalculatedAt}
	})
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = []sharedomain.RevenueShare{}
	}
	return &sharedomain.ListResponse{Shares: page, PageInfo: info}, nil
}

// parseBound accepts RFC3339 timestamps or plain dates. A plain upper date is
// inclusive, so it is moved to the start of the following day.
func parseBound(raw string, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, sharedomain.ErrInvalidRange
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

func (s *Service) ListByTransaction(ctx context.Context, transactionID string) ([]sharedomain.RevenueShare, error) {
	return s.repo.ListByTransaction(ctx, s.db, strings.TrimSpace(transactionID))
}

func (s *Service) ListByPayout(ctx context.Context, payoutID snowflake.ID) ([]sharedomain.RevenueShare, error) {
	return s.repo.ListByPayout(ctx, s.db, payoutID)
}

func (s *Service) ClaimPending(ctx context.Context, db *gorm.DB, providerID string, month period.MonthYear, payoutID snowflake.ID) (int64, error) {
	return s.repo.ClaimPending(ctx, db, providerID, month, payoutID)
}

func (s *Service) SumByPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID) (sharedomain.PayoutSum, error) {
	return s.repo.SumByPayout(ctx, db, payoutID)
}

func (s *Service) MarkPaid(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, paidAt time.Time) (int64, error) {
	return s.repo.MarkPaid(ctx, db, payoutID, paidAt)
}

func (s *Service) PendingDue(ctx context.Context, db *gorm.DB, providerID string, month period.MonthYear) (int64, error) {
	if db == nil {
		db = s.db
	}
	return s.repo.PendingDue(ctx, db, providerID, month)
}

func (s *Service) ProvidersWithPending(ctx context.Context, db *gorm.DB, month period.MonthYear) ([]string, error) {
	if db == nil {
		db = s.db
	}
	return s.repo.ProvidersWithPending(ctx, db, month)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	attributiondomain "github.com/smallbiznis/revenueshare/internal/attribution/domain"
	"github.com/smallbiznis/revenueshare/internal/clock"
	obslogger "github.com/smallbiznis/revenueshare/internal/observability/logger"
	"github.com/smallbiznis/revenueshare/internal/observability/metrics"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
	"github.com/smallbiznis/revenueshare/internal/period"
	pricingdomain "github.com/smallbiznis/revenueshare/internal/pricing/domain"
	sharedomain "github.com/smallbiznis/revenueshare/internal/revenueshare/domain"
	txndomain "github.com/smallbiznis/revenueshare/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Repo        txndomain.Repository
	Pricing     pricingdomain.Service
	Attribution attributiondomain.Service
	Shares      sharedomain.Service
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        txndomain.Repository
	pricing     pricingdomain.Service
	attribution attributiondomain.Service
	shares      sharedomain.Service
	metrics     *metrics.Metrics
}

func New(p Params) txndomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("transaction.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		pricing:     p.Pricing,
		attribution: p.Attribution,
		shares:      p.Shares,
		metrics:     p.Metrics,
	}
}

func (s *Service) ProcessCompletion(ctx context.Context, event txndomain.CompletionEvent) (*txndomain.CompletionResult, error) {
	txn, err := s.normalize(event)
	if err != nil {
		return nil, err
	}

	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("transaction_id", txn.ID),
		zap.String("package_type", string(txn.PackageType)),
	)

	var result *txndomain.CompletionResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.Insert(ctx, tx, &txn)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		stored, err := s.repo.FindByIDForUpdate(ctx, tx, txn.ID)
		if err != nil {
			return err
		}
		if stored == nil {
			return txndomain.ErrTransactionNotFound
		}
		if !inserted && !stored.SameFacts(txn) {
			return txndomain.ErrTransactionMismatch
		}
		if stored.SharesCalculatedAt != nil {
			result, err = s.replay(ctx, tx, stored)
			return err
		}

		result, err = s.calculate(ctx, tx, stored, log)
		return err
	})
	if err != nil {
		if !errors.Is(err, txndomain.ErrTransactionMismatch) {
			log.Error("transaction.completion.failed", zap.Error(err))
		}
		return nil, err
	}
	if result.Replayed {
		if result.Shares, err = s.shares.ListByTransaction(ctx, txn.ID); err != nil {
			return nil, err
		}
	}

	s.metrics.RecordTransaction(ctx, string(txn.PackageType), result.Replayed)
	if result.Replayed {
		log.Info("transaction.completion.replayed")
	} else {
		log.Info("transaction.completion.processed",
			zap.Int("share_count", len(result.Shares)),
			zap.Int64("provider_share_total", result.Transaction.ProviderShareTotal),
			zap.Int64("admin_share", result.Transaction.AdminShare),
		)
	}
	return result, nil
}

func (s *Service) calculate(ctx context.Context, tx *gorm.DB, txn *txndomain.Transaction, log *zap.Logger) (*txndomain.CompletionResult, error) {
	snapshot, err := s.pricing.Lookup(ctx, tx, txn.PackageType, txn.CompletedAt)
	if err != nil {
		return nil, err
	}

	attribution, err := s.attribution.Resolve(ctx, tx, attributiondomain.Purchase{
		TransactionID: txn.ID,
		PackageType:   txn.PackageType,
		Province:      txn.Province,
		CompletedAt:   txn.CompletedAt,
	})
	if err != nil {
		return nil, err
	}

	weights := make([]sharedomain.WeightInput, 0, len(attribution.Weights))
	for _, w := range attribution.Weights {
		weights = append(weights, sharedomain.WeightInput{
			ProviderID:  w.ProviderID,
			Numerator:   w.Numerator,
			Denominator: w.Denominator,
		})
	}

	calculatedAt := s.clock.Now().UTC()
	recorded, err := s.shares.Record(ctx, tx, sharedomain.RecordRequest{
		TransactionID:             txn.ID,
		PackageType:               txn.PackageType,
		TotalAmount:               txn.TotalAmount,
		ProviderCommissionPercent: snapshot.ProviderCommissionPercent,
		PricingSnapshotID:         snapshot.ID,
		Weights:                   weights,
		CalculatedAt:              calculatedAt,
	})
	if err != nil {
		return nil, err
	}

	summary := txndomain.ShareSummary{
		PricingSnapshotID:  snapshot.ID,
		ProviderShareTotal: recorded.Split.ProviderShareTotal,
		AdminShare:         recorded.Split.AdminShare,
		MonthYear:          period.Of(calculatedAt),
		CalculatedAt:       calculatedAt,
	}
	if err := s.repo.UpdateShareSummary(ctx, tx, txn.ID, summary); err != nil {
		return nil, err
	}

	if attribution.Empty() {
		log.Warn("transaction.attribution.empty",
			zap.String("warning", attribution.Attribution.Warning),
			zap.Int64("admin_share", recorded.Split.AdminShare),
		)
	}

	snapshotID := snapshot.ID
	txn.PricingSnapshotID = &snapshotID
	txn.ProviderShareTotal = summary.ProviderShareTotal
	txn.AdminShare = summary.AdminShare
	txn.MonthYear = summary.MonthYear
	txn.SharesCalculatedAt = &calculatedAt

	return &txndomain.CompletionResult{
		Transaction: *txn,
		Shares:      recorded.Shares,
		Warning:     attribution.Attribution.Warning,
	}, nil
}

// replay rebuilds the outcome of an already processed event. Shares are
// loaded by the caller once the transaction is closed.
func (s *Service) replay(ctx context.Context, tx *gorm.DB, txn *txndomain.Transaction) (*txndomain.CompletionResult, error) {
	attribution, err := s.attribution.Resolve(ctx, tx, attributiondomain.Purchase{
		TransactionID: txn.ID,
		PackageType:   txn.PackageType,
		Province:      txn.Province,
		CompletedAt:   txn.CompletedAt,
	})
	if err != nil {
		return nil, err
	}
	return &txndomain.CompletionResult{
		Transaction: *txn,
		Warning:     attribution.Attribution.Warning,
		Replayed:    true,
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*txndomain.Transaction, error) {
	txn, err := s.repo.FindByID(ctx, s.db, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, txndomain.ErrTransactionNotFound
	}
	return txn, nil
}

func (s *Service) normalize(event txndomain.CompletionEvent) (txndomain.Transaction, error) {
	id := strings.TrimSpace(event.TransactionID)
	if id == "" {
		return txndomain.Transaction{}, txndomain.ErrInvalidTransactionID
	}
	pkg, ok := packagetype.Parse(event.PackageType)
	if !ok {
		return txndomain.Transaction{}, txndomain.ErrInvalidPackageType
	}
	consumer := strings.TrimSpace(event.ConsumerID)
	if consumer == "" {
		return txndomain.Transaction{}, txndomain.ErrInvalidConsumer
	}
	if event.TotalAmount < 0 {
		return txndomain.Transaction{}, txndomain.ErrInvalidAmount
	}
	if event.CompletedAt.IsZero() {
		return txndomain.Transaction{}, txndomain.ErrInvalidCompletedAt
	}
	province := strings.TrimSpace(event.Province)
	if pkg == packagetype.Subscription && province == "" {
		return txndomain.Transaction{}, txndomain.ErrProvinceRequired
	}
	currency := strings.ToUpper(strings.TrimSpace(event.Currency))
	if currency == "" {
		currency = txndomain.DefaultCurrency
	}

	return txndomain.Transaction{
		ID:          id,
		PackageType: pkg,
		ConsumerID:  consumer,
		TotalAmount: event.TotalAmount,
		Currency:    currency,
		Province:    province,
		CompletedAt: event.CompletedAt.UTC().Truncate(time.Microsecond),
		CreatedAt:   s.clock.Now().UTC(),
	}, nil
}

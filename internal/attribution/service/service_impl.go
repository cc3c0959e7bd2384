package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	attributiondomain "github.com/smallbiznis/revenueshare/internal/attribution/domain"
	"github.com/smallbiznis/revenueshare/internal/attribution/strategy"
	"github.com/smallbiznis/revenueshare/internal/clock"
	obslogger "github.com/smallbiznis/revenueshare/internal/observability/logger"
	"github.com/smallbiznis/revenueshare/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     attributiondomain.Repository
	Registry *strategy.Registry
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     attributiondomain.Repository
	registry *strategy.Registry
	metrics  *metrics.Metrics
}

func New(p Params) attributiondomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("attribution.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		registry: p.Registry,
		metrics:  p.Metrics,
	}
}

func (s *Service) Resolve(ctx context.Context, db *gorm.DB, p attributiondomain.Purchase) (*attributiondomain.Result, error) {
	if strings.TrimSpace(p.TransactionID) == "" || p.CompletedAt.IsZero() {
		return nil, attributiondomain.ErrInvalidTransactionInput
	}
	if db == nil {
		db = s.db
	}

	stored, err := s.load(ctx, db, p.TransactionID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		stored.Replayed = true
		return stored, nil
	}

	impl, err := s.registry.For(p.PackageType)
	if err != nil {
		return nil, err
	}

	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("transaction_id", p.TransactionID),
		zap.String("package_type", string(p.PackageType)),
		zap.String("strategy", impl.Name()),
	)

	header := attributiondomain.Attribution{
		TransactionID: p.TransactionID,
		PackageType:   p.PackageType,
		Strategy:      impl.Name(),
		ResolvedAt:    s.clock.Now().UTC(),
	}

	weights, err := impl.ComputeAttribution(ctx, p)
	switch {
	case errors.Is(err, attributiondomain.ErrNoEligibleProviders):
		header.Warning = attributiondomain.ErrNoEligibleProviders.Error()
		weights = nil
		log.Warn("attribution.no_eligible_providers")
		s.metrics.RecordAttributionWarning(ctx, string(p.PackageType), header.Warning)
	case err != nil:
		return nil, fmt.Errorf("compute attribution: %w", err)
	}
	if err := validateWeights(weights); err != nil {
		return nil, err
	}
	header.ProviderCount = len(weights)

	inserted, err := s.repo.InsertAttribution(ctx, db, &header)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// A concurrent delivery of the same event won; its attribution is the fact.
		stored, err := s.load(ctx, db, p.TransactionID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, attributiondomain.ErrAttributionNotFound
		}
		stored.Replayed = true
		return stored, nil
	}

	rows := make([]attributiondomain.AttributionWeight, 0, len(weights))
	for _, w := range weights {
		rows = append(rows, attributiondomain.AttributionWeight{
			TransactionID: p.TransactionID,
			ProviderID:    w.ProviderID,
			Numerator:     w.Numerator,
			Denominator:   w.Denominator,
		})
	}
	if err := s.repo.InsertWeights(ctx, db, rows); err != nil {
		return nil, err
	}

	log.Debug("attribution resolved", zap.Int("provider_count", header.ProviderCount))
	return &attributiondomain.Result{Attribution: header, Weights: weights}, nil
}

func (s *Service) Get(ctx context.Context, transactionID string) (*attributiondomain.Result, error) {
	result, err := s.load(ctx, s.db, strings.TrimSpace(transactionID))
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, attributiondomain.ErrAttributionNotFound
	}
	return result, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, transactionID string) (*attributiondomain.Result, error) {
	header, err := s.repo.FindAttribution(ctx, db, transactionID)
	if err != nil || header == nil {
		return nil, err
	}
	rows, err := s.repo.ListWeights(ctx, db, transactionID)
	if err != nil {
		return nil, err
	}
	weights := make([]attributiondomain.Weight, 0, len(rows))
	for _, r := range rows {
		weights = append(weights, attributiondomain.Weight{
			ProviderID:  r.ProviderID,
			Numerator:   r.Numerator,
			Denominator: r.Denominator,
		})
	}
	return &attributiondomain.Result{Attribution: *header, Weights: weights}, nil
}

// validateWeights enforces non-negative weights summing to exactly one. Row
// counts can be large, so the sum is kept as an exact decimal fraction.
func validateWeights(weights []attributiondomain.Weight) error {
	if len(weights) == 0 {
		return nil
	}
	num, den := decimal.Zero, decimal.NewFromInt(1)
	for _, w := range weights {
		if w.Numerator < 0 || w.Denominator <= 0 || w.Numerator > w.Denominator {
			return fmt.Errorf("invalid weight %d/%d for provider %s", w.Numerator, w.Denominator, w.ProviderID)
		}
		n, d := decimal.NewFromInt(w.Numerator), decimal.NewFromInt(w.Denominator)
		// Row-contribution weights share one denominator.
		if d.Equal(den) {
			num = num.Add(n)
			continue
		}
		num = num.Mul(d).Add(n.Mul(den))
		den = den.Mul(d)
	}
	if !num.Equal(den) {
		return fmt.Errorf("attribution weights sum to %s/%s, want 1", num, den)
	}
	return nil
}

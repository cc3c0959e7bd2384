package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/revenueshare/internal/config"
	obscontext "github.com/smallbiznis/revenueshare/internal/observability/context"
	obslogger "github.com/smallbiznis/revenueshare/internal/observability/logger"
	"github.com/smallbiznis/revenueshare/internal/observability/metrics"
	payoutdomain "github.com/smallbiznis/revenueshare/internal/payout/domain"
	"github.com/smallbiznis/revenueshare/internal/payout/lock"
	"github.com/smallbiznis/revenueshare/internal/period"
	"github.com/smallbiznis/revenueshare/pkg/db"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// errNothingDue rolls back a payout write that would leave nothing owed.
var errNothingDue = errors.New("nothing due")

func (s *Service) Generate(ctx context.Context, req payoutdomain.GenerateRequest) (*payoutdomain.GenerationReport, error) {
	month, err := period.Parse(req.MonthYear)
	if err != nil {
		return nil, err
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = payoutdomain.TriggerManual
	}

	cfg := s.cfg.Get()
	report := &payoutdomain.GenerationReport{
		RunID:     ulid.Make().String(),
		MonthYear: month,
		Trigger:   trigger,
		StartedAt: s.clock.Now().UTC(),
	}
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("run_id", report.RunID),
		zap.String("month_year", month.String()),
		zap.String("trigger", string(trigger)),
	)

	providers, err := s.candidates(ctx, month, req.ProviderIDs)
	if err != nil {
		return nil, err
	}

	results := make([]payoutdomain.ProviderResult, len(providers))
	var g errgroup.Group
	g.SetLimit(cfg.GenerateConcurrency)
	for i, providerID := range providers {
		g.Go(func() error {
			results[i] = s.generateWithRetry(ctx, cfg, providerID, month, log)
			return nil
		})
	}
	_ = g.Wait()

	report.Results = results
	report.FinishedAt = s.clock.Now().UTC()
	for _, res := range results {
		s.metrics.RecordPayoutOutcome(ctx, string(res.Outcome))
		s.schedMetrics.IncProviderResult(string(res.Outcome))
	}

	if err := s.persistRun(ctx, report); err != nil {
		log.Error("payout.generate.persist_run_failed", zap.Error(err))
		return nil, err
	}

	log.Info("payout.generate.finished",
		zap.Int("providers", len(results)),
		zap.Int("failed", report.FailedCount()),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// candidates are providers with pending shares in the month plus providers
// whose pending payout may need a refresh. An explicit list replaces both.
func (s *Service) candidates(ctx context.Context, month period.MonthYear, requested []string) ([]string, error) {
	set := map[string]struct{}{}
	if len(requested) > 0 {
		for _, raw := range requested {
			id := strings.TrimSpace(raw)
			if id == "" {
				return nil, payoutdomain.ErrInvalidProvider
			}
			set[id] = struct{}{}
		}
	} else {
		withShares, err := s.shares.ProvidersWithPending(ctx, s.db, month)
		if err != nil {
			return nil, err
		}
		withPayout, err := s.repo.ProvidersWithPendingPayout(ctx, s.db, month)
		if err != nil {
			return nil, err
		}
		for _, id := range append(withShares, withPayout...) {
			set[id] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Service) generateWithRetry(ctx context.Context, cfg config.PayoutConfig, providerID string, month period.MonthYear, log *zap.Logger) payoutdomain.ProviderResult {
	log = obslogger.WithProvider(log, providerID, month.String())

	attempts := 0
	res, err := backoff.Retry(ctx,
		func() (payoutdomain.ProviderResult, error) {
			attempts++
			res, err := s.generateProvider(ctx, cfg, providerID, month)
			if err != nil && !retryable(err) {
				return res, backoff.Permanent(err)
			}
			return res, err
		},
		backoff.WithBackOff(conflictBackOff(cfg)),
		backoff.WithMaxTries(uint(cfg.ConflictRetries)+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.schedMetrics.IncConflictRetry(err)
			log.Debug("payout.generate.retry", zap.Int("attempt", attempts), zap.Duration("wait", wait), zap.Error(err))
		}),
	)
	if err != nil {
		log.Warn("payout.generate.failed", zap.Int("attempts", attempts), zap.Error(err))
		return failedResult(providerID, attempts, err)
	}

	res.ProviderID = providerID
	res.Attempts = attempts
	log.Debug("payout.generate.provider",
		zap.String("outcome", string(res.Outcome)),
		zap.String("payout_id", res.PayoutID),
		zap.Int64("total_due", res.TotalDue),
	)
	return res
}

// conflictBackOff spaces out retries after a lost race on the provider month.
func conflictBackOff(cfg config.PayoutConfig) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if cfg.ConflictBackoff > 0 {
		b.InitialInterval = cfg.ConflictBackoff
	}
	if cfg.ConflictBackoffMax >= b.InitialInterval {
		b.MaxInterval = cfg.ConflictBackoffMax
	} else {
		b.MaxInterval = b.InitialInterval
	}
	b.RandomizationFactor = 0.2
	b.Multiplier = 2
	b.Reset()
	return b
}

func retryable(err error) bool {
	return db.IsConflictErr(err) ||
		errors.Is(err, payoutdomain.ErrProviderBusy) ||
		errors.Is(err, payoutdomain.ErrConcurrentUpdate)
}

func failedResult(providerID string, attempts int, err error) payoutdomain.ProviderResult {
	return payoutdomain.ProviderResult{
		ProviderID: providerID,
		Outcome:    payoutdomain.OutcomeFailed,
		Attempts:   attempts,
		Error:      err.Error(),
	}
}

// generateProvider brings the (provider, month) payout up to date. It is
// serialized per key by the optional Redis lock and by the row lock on the
// open payout.
func (s *Service) generateProvider(ctx context.Context, cfg config.PayoutConfig, providerID string, month period.MonthYear) (payoutdomain.ProviderResult, error) {
	if s.locker != nil {
		key := lock.Key(providerID, month)
		lockStart := time.Now()
		token, ok, err := s.locker.TryLock(ctx, key, cfg.LockTTL)
		s.schedMetrics.ObserveDBLockWait(metrics.LockResourceProviderLock, time.Since(lockStart))
		if err != nil {
			return payoutdomain.ProviderResult{}, fmt.Errorf("acquire provider lock: %w", err)
		}
		if !ok {
			return payoutdomain.ProviderResult{}, payoutdomain.ErrProviderBusy
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := s.locker.Release(releaseCtx, key, token); err != nil {
				s.log.Warn("payout.lock.release_failed", zap.String("key", key), zap.Error(err))
			}
		}()
	}

	var res payoutdomain.ProviderResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now().UTC()

		lockStart := time.Now()
		open, err := s.repo.FindOpenForUpdate(ctx, tx, providerID, month)
		s.schedMetrics.ObserveDBLockWait(metrics.LockResourceOpenPayout, time.Since(lockStart))
		if err != nil {
			return err
		}

		if open != nil {
			res = resultFor(open)
			if open.Status == payoutdomain.StatusProcessing {
				res.Outcome = payoutdomain.OutcomeSkippedProcessing
				return nil
			}
			claimed, changed, err := s.refreshTotals(ctx, tx, open)
			if err != nil {
				return err
			}
			res = resultFor(open)
			res.Claimed = claimed
			res.Outcome = payoutdomain.OutcomeUnchanged
			if !changed {
				return nil
			}
			res.Outcome = payoutdomain.OutcomeUpdated
			open.UpdatedAt = now
			return s.saveState(ctx, tx, open, payoutdomain.StatusPending)
		}

		failed, err := s.repo.FindLatestFailedForUpdate(ctx, tx, providerID, month)
		if err != nil {
			return err
		}
		if failed != nil {
			failed.Status = payoutdomain.StatusPending
			failed.FailureReason = ""
			failed.UpdatedAt = now
			claimed, _, err := s.refreshTotals(ctx, tx, failed)
			if err != nil {
				return err
			}
			if failed.TotalDue <= 0 {
				res = payoutdomain.ProviderResult{Outcome: payoutdomain.OutcomeNothingDue}
				return errNothingDue
			}
			if err := s.saveState(ctx, tx, failed, payoutdomain.StatusFailed); err != nil {
				return err
			}
			if err := s.recordChange(ctx, tx, failed.ID, payoutdomain.StatusFailed, payoutdomain.StatusPending, "reopened by generation", now); err != nil {
				return err
			}
			res = resultFor(failed)
			res.Claimed = claimed
			res.Outcome = payoutdomain.OutcomeReopened
			return nil
		}

		seq, err := s.repo.NextSequence(ctx, tx, providerID, month)
		if err != nil {
			return err
		}
		payout := &payoutdomain.Payout{
			ID:         s.genID.Generate(),
			ProviderID: providerID,
			MonthYear:  month,
			Sequence:   seq,
			Status:     payoutdomain.StatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.Insert(ctx, tx, payout); err != nil {
			return fmt.Errorf("insert payout: %w", err)
		}
		claimed, _, err := s.refreshTotals(ctx, tx, payout)
		if err != nil {
			return err
		}
		// Shares rounded down to zero are claimable but owe nothing.
		if claimed == 0 || payout.TotalDue <= 0 {
			res = payoutdomain.ProviderResult{Outcome: payoutdomain.OutcomeNothingDue}
			return errNothingDue
		}
		if err := s.saveState(ctx, tx, payout, payoutdomain.StatusPending); err != nil {
			return err
		}
		if err := s.recordChange(ctx, tx, payout.ID, "", payoutdomain.StatusPending, "created by generation", now); err != nil {
			return err
		}
		res = resultFor(payout)
		res.Claimed = claimed
		res.Outcome = payoutdomain.OutcomeCreated
		return nil
	})
	if errors.Is(err, errNothingDue) {
		return res, nil
	}
	if err != nil {
		return payoutdomain.ProviderResult{}, err
	}
	return res, nil
}

// refreshTotals claims the key's pending shares for p and re-derives its
// totals from the shares it owns. It reports how many shares were claimed
// and whether the totals moved.
func (s *Service) refreshTotals(ctx context.Context, tx *gorm.DB, p *payoutdomain.Payout) (int64, bool, error) {
	claimed, err := s.shares.ClaimPending(ctx, tx, p.ProviderID, p.MonthYear, p.ID)
	if err != nil {
		return 0, false, fmt.Errorf("claim pending shares: %w", err)
	}
	sum, err := s.shares.SumByPayout(ctx, tx, p.ID)
	if err != nil {
		return 0, false, err
	}
	changed := sum.TotalDue != p.TotalDue || sum.ShareCount != p.ShareCount
	p.TotalDue = sum.TotalDue
	p.ShareCount = sum.ShareCount
	return claimed, changed, nil
}

func (s *Service) saveState(ctx context.Context, tx *gorm.DB, p *payoutdomain.Payout, expected payoutdomain.PayoutStatus) error {
	ok, err := s.repo.UpdateState(ctx, tx, p, expected)
	if err != nil {
		return err
	}
	if !ok {
		return payoutdomain.ErrConcurrentUpdate
	}
	return nil
}

func resultFor(p *payoutdomain.Payout) payoutdomain.ProviderResult {
	return payoutdomain.ProviderResult{
		ProviderID: p.ProviderID,
		PayoutID:   p.ID.String(),
		Sequence:   p.Sequence,
		TotalDue:   p.TotalDue,
	}
}

func (s *Service) persistRun(ctx context.Context, report *payoutdomain.GenerationReport) error {
	encoded, err := json.Marshal(report.Results)
	if err != nil {
		return err
	}
	return s.repo.InsertRun(ctx, s.db, &payoutdomain.PayoutGenerationRun{
		ID:         report.RunID,
		MonthYear:  report.MonthYear,
		Trigger:    report.Trigger,
		Actor:      obscontext.ActorLabel(ctx),
		Providers:  len(report.Results),
		Failed:     report.FailedCount(),
		Results:    datatypes.JSON(encoded),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	})
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenueshare/internal/clock"
	"github.com/smallbiznis/revenueshare/internal/config"
	obscontext "github.com/smallbiznis/revenueshare/internal/observability/context"
	obslogger "github.com/smallbiznis/revenueshare/internal/observability/logger"
	"github.com/smallbiznis/revenueshare/internal/observability/metrics"
	payoutdomain "github.com/smallbiznis/revenueshare/internal/payout/domain"
	"github.com/smallbiznis/revenueshare/internal/payout/lock"
	"github.com/smallbiznis/revenueshare/internal/period"
	sharedomain "github.com/smallbiznis/revenueshare/internal/revenueshare/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Clock            clock.Clock
	Repo             payoutdomain.Repository
	Shares           sharedomain.Service
	Config           *config.PayoutConfigHolder
	Locker           *lock.Locker              `optional:"true"`
	Metrics          *metrics.Metrics          `optional:"true"`
	SchedulerMetrics *metrics.SchedulerMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         payoutdomain.Repository
	shares       sharedomain.Aggregator
	cfg          *config.PayoutConfigHolder
	locker       *lock.Locker
	metrics      *metrics.Metrics
	schedMetrics *metrics.SchedulerMetrics
}

func New(p Params) payoutdomain.Service {
	cfg := p.Config
	if cfg == nil {
		cfg = config.NewStaticPayoutConfigHolder(config.DefaultPayoutConfig())
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payout.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		shares:       p.Shares,
		cfg:          cfg,
		locker:       p.Locker,
		metrics:      p.Metrics,
		schedMetrics: p.SchedulerMetrics,
	}
}

func (s *Service) Get(ctx context.Context, rawID string) (*payoutdomain.PayoutDetail, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	payout, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, payoutdomain.ErrPayoutNotFound
	}
	history, err := s.repo.ListStatusChanges(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	unclaimed, err := s.shares.PendingDue(ctx, s.db, payout.ProviderID, payout.MonthYear)
	if err != nil {
		return nil, err
	}
	return &payoutdomain.PayoutDetail{Payout: *payout, History: history, UnclaimedDue: unclaimed}, nil
}

func (s *Service) List(ctx context.Context, req payoutdomain.ListRequest) ([]payoutdomain.Payout, error) {
	filter := payoutdomain.ListFilter{ProviderID: strings.TrimSpace(req.ProviderID)}
	if raw := strings.TrimSpace(req.Month); raw != "" {
		month, err := period.Parse(raw)
		if err != nil {
			return nil, err
		}
		filter.MonthYear = month
	}
	if raw := strings.TrimSpace(strings.ToLower(req.Status)); raw != "" {
		filter.Status = payoutdomain.PayoutStatus(raw)
		if !filter.Status.Valid() {
			return nil, payoutdomain.ErrInvalidStatus
		}
	}
	switch {
	case req.Limit <= 0:
		filter.Limit = defaultListLimit
	case req.Limit > maxListLimit:
		filter.Limit = maxListLimit
	default:
		filter.Limit = req.Limit
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []payoutdomain.Payout{}
	}
	return items, nil
}

func (s *Service) MarkProcessing(ctx context.Context, id string, req payoutdomain.MarkProcessingRequest) (*payoutdomain.Payout, error) {
	method := strings.TrimSpace(req.PaymentMethod)
	if !s.cfg.Get().PaymentMethodAllowed(method) {
		return nil, payoutdomain.ErrInvalidPaymentMethod
	}
	return s.transition(ctx, id, payoutdomain.StatusProcessing, "", func(_ *gorm.DB, p *payoutdomain.Payout, _ time.Time) error {
		if method != "" {
			p.PaymentMethod = method
		}
		return nil
	})
}

// Complete settles the payout and flips its shares to paid. A payout that is
// already completed is never touched again.
func (s *Service) Complete(ctx context.Context, id string, req payoutdomain.CompleteRequest) (*payoutdomain.Payout, error) {
	ref := strings.TrimSpace(req.TransactionRef)
	if ref == "" {
		return nil, payoutdomain.ErrTransactionRefRequired
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if !s.cfg.Get().PaymentMethodAllowed(method) {
		return nil, payoutdomain.ErrInvalidPaymentMethod
	}

	return s.transition(ctx, id, payoutdomain.StatusCompleted, "", func(tx *gorm.DB, p *payoutdomain.Payout, now time.Time) error {
		if req.ExpectedTotalDue != nil && *req.ExpectedTotalDue != p.TotalDue {
			return fmt.Errorf("%w: expected %d, payout owes %d", payoutdomain.ErrTotalDueMismatch, *req.ExpectedTotalDue, p.TotalDue)
		}
		sum, err := s.shares.SumByPayout(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if sum.TotalDue != p.TotalDue || sum.ShareCount != p.ShareCount {
			return fmt.Errorf("%w: shares total %d, payout owes %d", payoutdomain.ErrTotalDueMismatch, sum.TotalDue, p.TotalDue)
		}
		paid, err := s.shares.MarkPaid(ctx, tx, p.ID, now)
		if err != nil {
			return err
		}
		if paid != sum.ShareCount {
			return payoutdomain.ErrConcurrentUpdate
		}

		p.TransactionRef = ref
		p.BankAccount = strings.TrimSpace(req.BankAccount)
		if method != "" {
			p.PaymentMethod = method
		}
		p.FailureReason = ""
		completedAt := now
		p.CompletedAt = &completedAt
		return nil
	})
}

func (s *Service) Fail(ctx context.Context, id string, req payoutdomain.FailRequest) (*payoutdomain.Payout, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, payoutdomain.ErrFailureReasonRequired
	}
	return s.transition(ctx, id, payoutdomain.StatusFailed, reason, func(_ *gorm.DB, p *payoutdomain.Payout, _ time.Time) error {
		p.FailureReason = reason
		return nil
	})
}

// Retry puts a failed payout back to pending. Its shares stay included.
func (s *Service) Retry(ctx context.Context, id string) (*payoutdomain.Payout, error) {
	return s.transition(ctx, id, payoutdomain.StatusPending, "retry", func(tx *gorm.DB, p *payoutdomain.Payout, _ time.Time) error {
		open, err := s.repo.FindOpenForUpdate(ctx, tx, p.ProviderID, p.MonthYear)
		if err != nil {
			return err
		}
		if open != nil && open.ID != p.ID {
			return fmt.Errorf("%w: %s", payoutdomain.ErrOpenPayoutExists, open.ID)
		}
		p.FailureReason = ""
		return nil
	})
}

type applyFunc func(tx *gorm.DB, p *payoutdomain.Payout, now time.Time) error

// transition locks the payout, checks the state machine, applies the command
// and writes the history row in one transaction.
func (s *Service) transition(ctx context.Context, rawID string, to payoutdomain.PayoutStatus, reason string, apply applyFunc) (*payoutdomain.Payout, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("payout_id", id.String()),
		zap.String("to_status", string(to)),
	)

	var (
		out  *payoutdomain.Payout
		from payoutdomain.PayoutStatus
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lockStart := time.Now()
		p, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		s.schedMetrics.ObserveDBLockWait(metrics.LockResourcePayoutByID, time.Since(lockStart))
		if err != nil {
			return err
		}
		if p == nil {
			return payoutdomain.ErrPayoutNotFound
		}

		from = p.Status
		if !from.CanTransitionTo(to) {
			if from == payoutdomain.StatusCompleted {
				return payoutdomain.ErrPayoutAlreadyCompleted
			}
			return fmt.Errorf("%w: %s to %s", payoutdomain.ErrInvalidTransition, from, to)
		}

		now := s.clock.Now().UTC()
		p.Status = to
		p.UpdatedAt = now
		if apply != nil {
			if err := apply(tx, p, now); err != nil {
				return err
			}
		}

		ok, err := s.repo.UpdateState(ctx, tx, p, from)
		if err != nil {
			return err
		}
		if !ok {
			return payoutdomain.ErrConcurrentUpdate
		}
		if err := s.recordChange(ctx, tx, p.ID, from, to, reason, now); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		log.Warn("payout.transition.rejected", zap.String("from_status", string(from)), zap.Error(err))
		return nil, err
	}

	s.metrics.RecordPayoutTransition(ctx, string(from), string(to))
	log.Info("payout.transition",
		zap.String("from_status", string(from)),
		zap.String("provider_id", out.ProviderID),
		zap.String("month_year", out.MonthYear.String()),
		zap.Int64("total_due", out.TotalDue),
	)
	return out, nil
}

func (s *Service) recordChange(ctx context.Context, tx *gorm.DB, payoutID snowflake.ID, from, to payoutdomain.PayoutStatus, reason string, at time.Time) error {
	return s.repo.InsertStatusChange(ctx, tx, &payoutdomain.PayoutStatusChange{
		ID:         s.genID.Generate(),
		PayoutID:   payoutID,
		FromStatus: from,
		ToStatus:   to,
		Actor:      obscontext.ActorLabel(ctx),
		Reason:     reason,
		CreatedAt:  at,
	})
}

func (s *Service) GetRun(ctx context.Context, runID string) (*payoutdomain.GenerationReport, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, payoutdomain.ErrRunNotFound
	}
	run, err := s.repo.FindRun(ctx, s.db, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, payoutdomain.ErrRunNotFound
	}

	report := &payoutdomain.GenerationReport{
		RunID:      run.ID,
		MonthYear:  run.MonthYear,
		Trigger:    run.Trigger,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Results:    []payoutdomain.ProviderResult{},
	}
	if len(run.Results) > 0 {
		if err := json.Unmarshal(run.Results, &report.Results); err != nil {
			return nil, fmt.Errorf("decode generation run results: %w", err)
		}
	}
	return report, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, payoutdomain.ErrInvalidPayoutID
	}
	return id, nil
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenueshare/internal/authorization"
	"github.com/smallbiznis/revenueshare/internal/clock"
	obscontext "github.com/smallbiznis/revenueshare/internal/observability/context"
	obsmetrics "github.com/smallbiznis/revenueshare/internal/observability/metrics"
	payoutdomain "github.com/smallbiznis/revenueshare/internal/payout/domain"
	"github.com/smallbiznis/revenueshare/internal/period"
	"github.com/smallbiznis/revenueshare/internal/scheduler/guard"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobPayoutGeneration = "payout_generation"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// systemActor is the identity scheduled jobs run as.
var systemActor = obscontext.Actor{ID: "scheduler", Role: authorization.RoleSystem}

type Params struct {
	fx.In

	Log      *zap.Logger
	Payouts  payoutdomain.Service
	AuthzSvc authorization.Service
	GenID    *snowflake.Node
	Clock    clock.Clock
	Config   Config                       `optional:"true"`
	Metrics  *obsmetrics.SchedulerMetrics `optional:"true"`
}

type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	genID    *snowflake.Node
	clock    clock.Clock
	payouts  payoutdomain.Service
	authzSvc authorization.Service
	metrics  *obsmetrics.SchedulerMetrics

	mu        sync.Mutex
	generated period.MonthYear
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Payouts == nil || p.AuthzSvc == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	m := p.Metrics
	if m == nil {
		m = obsmetrics.Scheduler()
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		genID:    p.GenID,
		clock:    p.Clock,
		payouts:  p.Payouts,
		authzSvc: p.AuthzSvc,
		metrics:  m,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context, run *jobRun) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err := fn(ctx, run)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// A deadline is a soft timeout; the next tick picks the work up again.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes every enabled job a single time.
func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, jobPayoutGeneration, s.cfg.JobTimeout, s.PayoutGenerationJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PayoutGenerationJob generates payouts for the month before now once the
// configured generation day is reached. A month is marked done only when
// every provider succeeded, so failures are retried on the next tick.
func (s *Scheduler) PayoutGenerationJob(ctx context.Context, run *jobRun) error {
	now := s.clock.Now()
	month := period.Of(now).Previous()

	s.mu.Lock()
	lastDone := s.generated
	s.mu.Unlock()

	if err := guard.EnsureGenerationDue(now, s.cfg.GenerateDay, lastDone); err != nil {
		s.logger(ctx).Debug("scheduler.payout_generation.skipped",
			zap.String("month", month.String()),
			zap.String("reason", err.Error()),
		)
		return nil
	}
	if err := guard.EnsureMonthClosed(month, now); err != nil {
		return err
	}

	if err := s.authzSvc.Authorize(ctx, systemActor, authorization.ObjectPayout, authorization.ActionPayoutGenerate); err != nil {
		return err
	}

	report, err := s.payouts.Generate(ctx, payoutdomain.GenerateRequest{
		MonthYear: month.String(),
		Trigger:   payoutdomain.TriggerScheduler,
	})
	if err != nil {
		return err
	}

	run.AddProcessed(len(report.Results))
	failed := report.FailedCount()
	if failed > 0 {
		for i := 0; i < failed; i++ {
			run.IncError()
		}
		s.logger(ctx).Warn("scheduler.payout_generation.partial",
			zap.String("month", month.String()),
			zap.String("generation_run_id", report.RunID),
			zap.Int("failed", failed),
		)
		return nil
	}

	s.mu.Lock()
	s.generated = month
	s.mu.Unlock()
	return nil
}

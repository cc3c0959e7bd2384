package service

import (
	"context"
	"sort"
	"strings"

	"github.com/smallbiznis/revenueshare/internal/clock"
	"github.com/smallbiznis/revenueshare/internal/period"
	reportingdomain "github.com/smallbiznis/revenueshare/internal/reporting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultWindow is how many months the summary covers when no range is given.
const defaultWindow = 12

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  reportingdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  reportingdomain.Repository
}

func New(p Params) reportingdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("reporting.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) RevenueSummary(ctx context.Context, req reportingdomain.SummaryRequest) (*reportingdomain.Summary, error) {
	from, to, err := s.window(req)
	if err != nil {
		return nil, err
	}

	summary := &reportingdomain.Summary{
		FromMonth:     from,
		ToMonth:       to,
		ByMonth:       []reportingdomain.MonthSummary{},
		ByPackageType: []reportingdomain.PackageSummary{},
		ByProvider:    []reportingdomain.ProviderSummary{},
	}

	months := map[string]*reportingdomain.MonthSummary{}
	monthRevenue, err := s.repo.Revenue(ctx, s.db, reportingdomain.ByMonth, from, to)
	if err != nil {
		return nil, err
	}
	for _, row := range monthRevenue {
		months[row.GroupKey] = &reportingdomain.MonthSummary{MonthYear: period.MonthYear(row.GroupKey), RevenueTotals: row.RevenueTotals}
	}
	monthEarnings, err := s.repo.Earnings(ctx, s.db, reportingdomain.ByMonth, from, to)
	if err != nil {
		return nil, err
	}
	for _, row := range monthEarnings {
		m, ok := months[row.GroupKey]
		if !ok {
			m = &reportingdomain.MonthSummary{MonthYear: period.MonthYear(row.GroupKey)}
			months[row.GroupKey] = m
		}
		m.Earnings = row.StatusTotals
	}
	for _, key := range sortedKeys(months) {
		summary.ByMonth = append(summary.ByMonth, *months[key])
	}

	packages := map[string]*reportingdomain.PackageSummary{}
	pkgRevenue, err := s.repo.Revenue(ctx, s.db, reportingdomain.ByPackageType, from, to)
	if err != nil {
		return nil, err
	}
	for _, row := range pkgRevenue {
		packages[row.GroupKey] = &reportingdomain.PackageSummary{PackageType: row.GroupKey, RevenueTotals: row.RevenueTotals}
	}
	pkgEarnings, err := s.repo.Earnings(ctx, s.db, reportingdomain.ByPackageType, from, to)
	if err != nil {
		return nil, err
	}
	for _, row := range pkgEarnings {
		p, ok := packages[row.GroupKey]
		if !ok {
			p = &reportingdomain.PackageSummary{PackageType: row.GroupKey}
			packages[row.GroupKey] = p
		}
		p.Earnings = row.StatusTotals
	}
	for _, key := range sortedKeys(packages) {
		summary.ByPackageType = append(summary.ByPackageType, *packages[key])
	}

	providerEarnings, err := s.repo.Earnings(ctx, s.db, reportingdomain.ByProvider, from, to)
	if err != nil {
		return nil, err
	}
	for _, row := range providerEarnings {
		summary.ByProvider = append(summary.ByProvider, reportingdomain.ProviderSummary{
			ProviderID: row.GroupKey,
			ShareCount: row.ShareCount,
			Earnings:   row.StatusTotals,
		})
	}

	summary.Accumulate()
	return summary, nil
}

func (s *Service) window(req reportingdomain.SummaryRequest) (period.MonthYear, period.MonthYear, error) {
	to := period.Of(s.clock.Now())
	if raw := strings.TrimSpace(req.ToMonth); raw != "" {
		parsed, err := period.Parse(raw)
		if err != nil {
			return "", "", err
		}
		to = parsed
	}

	from := to
	for i := 1; i < defaultWindow; i++ {
		from = from.Previous()
	}
	if raw := strings.TrimSpace(req.FromMonth); raw != "" {
		parsed, err := period.Parse(raw)
		if err != nil {
			return "", "", err
		}
		from = parsed
	}
	if from > to {
		return "", "", reportingdomain.ErrInvalidRange
	}
	return from, to, nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenueshare/internal/clock"
	"github.com/smallbiznis/revenueshare/internal/packagetype"
	pricingdomain "github.com/smallbiznis/revenueshare/internal/pricing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  pricingdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  pricingdomain.Repository
}

func New(p Params) pricingdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pricing.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req pricingdomain.CreateRequest) (*pricingdomain.Response, error) {
	pkg, ok := packagetype.Parse(req.PackageType)
	if !ok {
		return nil, pricingdomain.ErrInvalidPackageType
	}
	if err := pricingdomain.ValidateSplit(req.ProviderCommissionPercent, req.AdminCommissionPercent); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	effectiveAt := now
	if req.EffectiveAt != nil && !req.EffectiveAt.IsZero() {
		effectiveAt = req.EffectiveAt.UTC()
	}

	entity := &pricingdomain.PricingSnapshot{
		ID:                        s.genID.Generate(),
		PackageType:               pkg,
		ProviderCommissionPercent: req.ProviderCommissionPercent,
		AdminCommissionPercent:    req.AdminCommissionPercent,
		EffectiveAt:               effectiveAt,
		CreatedAt:                 now,
	}
	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		return nil, err
	}

	s.log.Info("pricing snapshot created",
		zap.String("snapshot_id", entity.ID.String()),
		zap.String("package_type", string(pkg)),
		zap.String("provider_commission_percent", entity.ProviderCommissionPercent.String()),
		zap.Time("effective_at", effectiveAt),
	)
	return toResponse(entity), nil
}

func (s *Service) List(ctx context.Context, rawPackageType string) ([]pricingdomain.Response, error) {
	var pkg packagetype.Type
	if rawPackageType != "" {
		parsed, ok := packagetype.Parse(rawPackageType)
		if !ok {
			return nil, pricingdomain.ErrInvalidPackageType
		}
		pkg = parsed
	}

	items, err := s.repo.List(ctx, s.db, pkg)
	if err != nil {
		return nil, err
	}
	resp := make([]pricingdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Lookup(ctx context.Context, db *gorm.DB, pkg packagetype.Type, at time.Time) (*pricingdomain.PricingSnapshot, error) {
	if !pkg.Valid() {
		return nil, pricingdomain.ErrInvalidPackageType
	}
	if db == nil {
		db = s.db
	}
	snapshot, err := s.repo.FindEffective(ctx, db, pkg, at)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, pricingdomain.ErrSnapshotNotFound
	}
	return snapshot, nil
}

func toResponse(s *pricingdomain.PricingSnapshot) *pricingdomain.Response {
	return &pricingdomain.Response{
		ID:                        s.ID.String(),
		PackageType:               string(s.PackageType),
		ProviderCommissionPercent: s.ProviderCommissionPercent,
		AdminCommissionPercent:    s.AdminCommissionPercent,
		EffectiveAt:               s.EffectiveAt,
		CreatedAt:                 s.CreatedAt,
	}
}

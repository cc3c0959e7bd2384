package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	obscontext "github.com/smallbiznis/revenueshare/internal/observability/context"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectPricingSnapshot = "pricing_snapshot"
	ObjectRevenueShare    = "revenue_share"
	ObjectPayout          = "payout"
	ObjectReport          = "report"
	ObjectTransaction     = "transaction"
)

const (
	ActionPricingView   = "pricing_snapshot.view"
	ActionPricingCreate = "pricing_snapshot.create"

	ActionRevenueShareView    = "revenue_share.view"
	ActionRevenueShareViewAll = "revenue_share.view_all"

	ActionPayoutView       = "payout.view"
	ActionPayoutGenerate   = "payout.generate"
	ActionPayoutProcessing = "payout.processing"
	ActionPayoutComplete   = "payout.complete"
	ActionPayoutFail       = "payout.fail"
	ActionPayoutRetry      = "payout.retry"

	ActionReportView = "report.view"

	ActionTransactionIngest = "transaction.ingest"
)

const (
	RoleAdmin    = "admin"
	RoleFinance  = "finance"
	RoleProvider = "provider"
	RoleSystem   = "system"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor obscontext.Actor, object string, action string) error {
	actorID := strings.TrimSpace(actor.ID)
	role := strings.ToLower(strings.TrimSpace(actor.Role))
	if actorID == "" || role == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}
	if !knownRole(role) {
		return ErrUnknownRole
	}

	subject := fmt.Sprintf("actor:%s", actorID)
	roleName := fmt.Sprintf("role:%s", role)
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization.denied",
			zap.String("subject", subject),
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per subject. The gateway is the
// source of truth for roles so a changed header replaces the stored link.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(rule[0], rule[1]); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func knownRole(role string) bool {
	switch role {
	case RoleAdmin, RoleFinance, RoleProvider, RoleSystem:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Providers only ever see their own ledger rows; ownership is checked by the caller.
		{"role:provider", ObjectRevenueShare, ActionRevenueShareView},
		{"role:provider", ObjectPayout, ActionPayoutView},

		{"role:finance", ObjectRevenueShare, ActionRevenueShareView},
		{"role:finance", ObjectRevenueShare, ActionRevenueShareViewAll},
		{"role:finance", ObjectPayout, ActionPayoutView},
		{"role:finance", ObjectPayout, ActionPayoutProcessing},
		{"role:finance", ObjectPayout, ActionPayoutComplete},
		{"role:finance", ObjectPayout, ActionPayoutFail},
		{"role:finance", ObjectReport, ActionReportView},
		{"role:finance", ObjectPricingSnapshot, ActionPricingView},

		{"role:admin", ObjectPricingSnapshot, ActionPricingView},
		{"role:admin", ObjectPricingSnapshot, ActionPricingCreate},
		{"role:admin", ObjectRevenueShare, ActionRevenueShareView},
		{"role:admin", ObjectRevenueShare, ActionRevenueShareViewAll},
		{"role:admin", ObjectPayout, ActionPayoutView},
		{"role:admin", ObjectPayout, ActionPayoutGenerate},
		{"role:admin", ObjectPayout, ActionPayoutProcessing},
		{"role:admin", ObjectPayout, ActionPayoutComplete},
		{"role:admin", ObjectPayout, ActionPayoutFail},
		{"role:admin", ObjectPayout, ActionPayoutRetry},
		{"role:admin", ObjectReport, ActionReportView},

		{"role:system", ObjectTransaction, ActionTransactionIngest},
		{"role:system", ObjectPayout, ActionPayoutGenerate},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}

package authorization

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/revenueshare/internal/observability/context"
	"github.com/smallbiznis/revenueshare/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	db := dbtest.Open(t)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeRoles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	admin := obscontext.Actor{ID: "u-1", Role: RoleAdmin}
	finance := obscontext.Actor{ID: "u-2", Role: RoleFinance}
	provider := obscontext.Actor{ID: "prov-1", Role: RoleProvider}

	assert.NoError(t, svc.Authorize(ctx, admin, ObjectPayout, ActionPayoutGenerate))
	assert.NoError(t, svc.Authorize(ctx, admin, ObjectPricingSnapshot, ActionPricingCreate))
	assert.NoError(t, svc.Authorize(ctx, finance, ObjectPayout, ActionPayoutComplete))
	assert.ErrorIs(t, svc.Authorize(ctx, finance, ObjectPricingSnapshot, ActionPricingCreate), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, provider, ObjectRevenueShare, ActionRevenueShareView))
	assert.ErrorIs(t, svc.Authorize(ctx, provider, ObjectPayout, ActionPayoutComplete), ErrForbidden)
}

func TestAuthorizeRoleChangeReplacesGrouping(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, obscontext.Actor{ID: "u-9", Role: RoleAdmin}, ObjectPayout, ActionPayoutRetry))
	err := svc.Authorize(ctx, obscontext.Actor{ID: "u-9", Role: RoleProvider}, ObjectPayout, ActionPayoutRetry)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeRejectsIncompleteActor(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, obscontext.Actor{Role: RoleAdmin}, ObjectPayout, ActionPayoutView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, obscontext.Actor{ID: "x", Role: "owner"}, ObjectPayout, ActionPayoutView), ErrUnknownRole)
	assert.ErrorIs(t, svc.Authorize(ctx, obscontext.Actor{ID: "x", Role: RoleAdmin}, "", ActionPayoutView), ErrInvalidObject)
}

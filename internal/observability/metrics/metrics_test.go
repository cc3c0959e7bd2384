package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/revenueshare/internal/authorization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, SchedulerJobReasonUnknown},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), SchedulerJobReasonDeadlineExceeded},
		{"canceled", context.Canceled, SchedulerJobReasonDeadlineExceeded},
		{"forbidden", authorization.ErrForbidden, SchedulerJobReasonForbidden},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, SchedulerJobReasonDBLockTimeout},
		{"serialization", &pgconn.PgError{Code: "40001"}, SchedulerJobReasonSerializationFailure},
		{"deadlock", fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40P01"}), SchedulerJobReasonSerializationFailure},
		{"unique pg", &pgconn.PgError{Code: "23505"}, SchedulerJobReasonUniqueViolation},
		{"unique gorm", gorm.ErrDuplicatedKey, SchedulerJobReasonUniqueViolation},
		{"other", errors.New("boom"), SchedulerJobReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySchedulerJobReason(tc.err))
		})
	}
}

func TestFilterAttributesDropsHighCardinalityKeys(t *testing.T) {
	got := FilterAttributes(
		attribute.String("package_type", "data"),
		attribute.String("provider_id", "prov-1"),
		attribute.String("transaction_id", "txn-1"),
		attribute.String("outcome", "created"),
	)
	require.Len(t, got, 2)
	assert.Equal(t, attribute.Key("package_type"), got[0].Key)
	assert.Equal(t, attribute.Key("outcome"), got[1].Key)
}

func TestSchedulerMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newSchedulerMetrics(reg, Config{ServiceName: "revenueshare-test", Environment: "test"})

	m.IncJobRun("payout_generation")
	m.IncJobRun("payout_generation")
	m.IncJobError("payout_generation", context.DeadlineExceeded)
	m.IncJobError("payout_generation", nil)
	m.IncProviderResult("created")
	m.ObserveRunLoopLag(-time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.jobRuns.WithLabelValues("payout_generation")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobErrors.WithLabelValues("payout_generation", SchedulerJobReasonDeadlineExceeded)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.providerResults.WithLabelValues("created")))
}

func TestNilSchedulerMetricsIsNoop(t *testing.T) {
	var m *SchedulerMetrics
	assert.NotPanics(t, func() {
		m.IncJobRun("x")
		m.IncJobTimeout("x")
		m.IncJobError("x", errors.New("boom"))
		m.ObserveJobDuration("x", time.Second)
		m.ObserveDBLockWait(LockResourceOpenPayout, time.Millisecond)
	})
}

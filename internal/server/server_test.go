package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/revenueshare/internal/authorization"
	"github.com/smallbiznis/revenueshare/internal/observability"
	obslogger "github.com/smallbiznis/revenueshare/internal/observability/logger"
	payoutdomain "github.com/smallbiznis/revenueshare/internal/payout/domain"
	pricingdomain "github.com/smallbiznis/revenueshare/internal/pricing/domain"
	reportingdomain "github.com/smallbiznis/revenueshare/internal/reporting/domain"
	sharedomain "github.com/smallbiznis/revenueshare/internal/revenueshare/domain"
	"github.com/smallbiznis/revenueshare/internal/statement"
	transactiondomain "github.com/smallbiznis/revenueshare/internal/transaction/domain"
	"github.com/smallbiznis/revenueshare/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTransactions struct {
	transactiondomain.Service
	events []transactiondomain.CompletionEvent
}

func (f *fakeTransactions) ProcessCompletion(_ context.Context, event transactiondomain.CompletionEvent) (*transactiondomain.CompletionResult, error) {
	replayed := false
	for _, seen := range f.events {
		if seen.TransactionID == event.TransactionID {
			replayed = true
		}
	}
	f.events = append(f.events, event)
	return &transactiondomain.CompletionResult{
		Transaction: transactiondomain.Transaction{ID: event.TransactionID, TotalAmount: event.TotalAmount},
		Replayed:    replayed,
	}, nil
}

type fakeShares struct {
	sharedomain.Service
	lastRequest *sharedomain.ListRequest
}

func (f *fakeShares) ListByProvider(_ context.Context, req sharedomain.ListRequest) (*sharedomain.ListResponse, error) {
	f.lastRequest = &req
	return &sharedomain.ListResponse{Shares: []sharedomain.RevenueShare{}}, nil
}

type fakePayouts struct {
	payoutdomain.Service
	completeErr error
	generated   []payoutdomain.GenerateRequest
	completed   []payoutdomain.CompleteRequest
}

func (f *fakePayouts) Get(_ context.Context, id string) (*payoutdomain.PayoutDetail, error) {
	if id != "1001" {
		return nil, payoutdomain.ErrPayoutNotFound
	}
	return &payoutdomain.PayoutDetail{Payout: payoutdomain.Payout{ID: snowflake.ID(1001), ProviderID: "prov-a"}}, nil
}

func (f *fakePayouts) Generate(_ context.Context, req payoutdomain.GenerateRequest) (*payoutdomain.GenerationReport, error) {
	f.generated = append(f.generated, req)
	return &payoutdomain.GenerationReport{RunID: "run-1", Trigger: req.Trigger}, nil
}

func (f *fakePayouts) Complete(_ context.Context, id string, req payoutdomain.CompleteRequest) (*payoutdomain.Payout, error) {
	f.completed = append(f.completed, req)
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return &payoutdomain.Payout{ID: snowflake.ID(1001), Status: payoutdomain.StatusCompleted}, nil
}

type fakeStatements struct{}

func (fakeStatements) Render(_ context.Context, payoutID string) (*statement.Document, error) {
	if payoutID != "1001" {
		return nil, payoutdomain.ErrPayoutNotFound
	}
	return &statement.Document{Filename: "payout-prov-a-2025-10-1.pdf", Content: []byte("%PDF-1.3")}, nil
}

type fakeReports struct {
	reportingdomain.Service
}

func (fakeReports) RevenueSummary(_ context.Context, req reportingdomain.SummaryRequest) (*reportingdomain.Summary, error) {
	if req.FromMonth == "bad" {
		return nil, reportingdomain.ErrInvalidRange
	}
	return &reportingdomain.Summary{}, nil
}

type fakePricing struct {
	pricingdomain.Service
}

type testServer struct {
	engine       *gin.Engine
	transactions *fakeTransactions
	shares       *fakeShares
	payouts      *fakePayouts
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	enforcer, err := authorization.NewEnforcer(dbtest.Open(t))
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer})

	ts := testServer{
		engine:       NewEngine(observability.Config{Environment: "test"}, nil),
		transactions: &fakeTransactions{},
		shares:       &fakeShares{},
		payouts:      &fakePayouts{},
	}
	NewServer(ServerParams{
		Gin:            ts.engine,
		Log:            zap.NewNop(),
		AuthzSvc:       authz,
		PricingSvc:     fakePricing{},
		TransactionSvc: ts.transactions,
		ShareSvc:       ts.shares,
		PayoutSvc:      ts.payouts,
		ReportingSvc:   fakeReports{},
		Statements:     fakeStatements{},
	})
	return ts
}

func (ts testServer) do(method, path, role, actorID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(obslogger.HeaderActorRole, role)
		req.Header.Set(obslogger.HeaderActorID, actorID)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

const completionBody = `{"transaction_id":"txn-1","package_type":"data_package","consumer_id":"c-1","total_amount":%s,"completed_at":"2025-10-02T08:00:00Z"}`

func completion(amount string) string {
	return strings.Replace(completionBody, "%s", amount, 1)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/health", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompleteTransactionRejectsNonIntegerAmounts(t *testing.T) {
	ts := newTestServer(t)

	for _, amount := range []string{"1000.5", "1e3", `"1000"`, "null"} {
		rec := ts.do(http.MethodPost, "/internal/transactions/completed", authorization.RoleSystem, "orders", completion(amount))
		assert.Equal(t, http.StatusBadRequest, rec.Code, amount)
		payload := decodeError(t, rec)
		assert.Equal(t, "validation_error", payload.Type)
		require.Len(t, payload.Errors, 1)
		assert.Equal(t, "total_amount", payload.Errors[0].Field)
	}
	assert.Empty(t, ts.transactions.events)
}

func TestCompleteTransactionCreatedThenReplayed(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/internal/transactions/completed", authorization.RoleSystem, "orders", completion("1000000"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, ts.transactions.events, 1)
	assert.Equal(t, int64(1000000), ts.transactions.events[0].TotalAmount)

	rec = ts.do(http.MethodPost, "/internal/transactions/completed", authorization.RoleSystem, "orders", completion("1000000"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestsWithoutActorAreUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/admin/payouts/1001", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleChecks(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/admin/payouts/generate", authorization.RoleProvider, "prov-a", `{"month":"2025-10"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, ts.payouts.generated)

	rec = ts.do(http.MethodPost, "/internal/transactions/completed", authorization.RoleFinance, "u-1", completion("10"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/admin/payouts/generate", authorization.RoleAdmin, "u-1", `{"month":"2025-10"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.payouts.generated, 1)
	assert.Equal(t, payoutdomain.TriggerManual, ts.payouts.generated[0].Trigger)
}

func TestCompletePayoutErrors(t *testing.T) {
	ts := newTestServer(t)

	ts.payouts.completeErr = payoutdomain.ErrPayoutAlreadyCompleted
	rec := ts.do(http.MethodPost, "/admin/payouts/1001/complete", authorization.RoleFinance, "u-1", `{"transaction_ref":"TRF-1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "payout_state_error", decodeError(t, rec).Type)

	rec = ts.do(http.MethodPost, "/admin/payouts/1001/complete", authorization.RoleFinance, "u-1", `{"transaction_ref":"TRF-1","expected_total_due":10.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.payouts.completeErr = nil
	rec = ts.do(http.MethodPost, "/admin/payouts/1001/complete", authorization.RoleFinance, "u-1", `{"transaction_ref":"TRF-1","expected_total_due":700}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	last := ts.payouts.completed[len(ts.payouts.completed)-1]
	require.NotNil(t, last.ExpectedTotalDue)
	assert.Equal(t, int64(700), *last.ExpectedTotalDue)
}

func TestGetPayoutNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/admin/payouts/42", authorization.RoleAdmin, "u-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/admin/payouts/1001", authorization.RoleAdmin, "u-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProvidersOnlySeeTheirOwnShares(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/revenue_shares?provider_id=prov-b", authorization.RoleProvider, "prov-a", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/revenue_shares?status=pending", authorization.RoleProvider, "prov-a", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ts.shares.lastRequest)
	assert.Equal(t, "prov-a", ts.shares.lastRequest.ProviderID)

	rec = ts.do(http.MethodGet, "/api/revenue_shares?provider_id=prov-b", authorization.RoleFinance, "u-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "prov-b", ts.shares.lastRequest.ProviderID)
}

func TestStatementDownload(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/admin/payouts/1001/statement.pdf", authorization.RoleFinance, "u-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "payout-prov-a-2025-10-1.pdf")
}

func TestRevenueSummaryValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/admin/reports/revenue_summary?from_month=bad", authorization.RoleFinance, "u-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_month_range", decodeError(t, rec).Errors[0].Code)
}

func TestCORSPreflightAllowsActorHeaders(t *testing.T) {
	r := gin.New()
	r.Use(corsMiddleware([]string{"https://ops.example.com"}))
	r.POST("/admin/payouts/generate", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/admin/payouts/generate", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-Actor-Role")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://ops.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

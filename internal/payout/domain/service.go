package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/revenueshare/internal/period"
)

// Service is the payout generator and ledger.
type Service interface {
	// Generate aggregates pending shares of the month into payouts. It is safe
	// to run repeatedly and concurrently; each provider is processed in
	// isolation and reported individually.
	Generate(ctx context.Context, req GenerateRequest) (*GenerationReport, error)
	GetRun(ctx context.Context, runID string) (*GenerationReport, error)

	Get(ctx context.Context, id string) (*PayoutDetail, error)
	List(ctx context.Context, req ListRequest) ([]Payout, error)

	MarkProcessing(ctx context.Context, id string, req MarkProcessingRequest) (*Payout, error)
	Complete(ctx context.Context, id string, req CompleteRequest) (*Payout, error)
	Fail(ctx context.Context, id string, req FailRequest) (*Payout, error)
	Retry(ctx context.Context, id string) (*Payout, error)
}

type GenerateRequest struct {
	MonthYear   string   `json:"month"`
	ProviderIDs []string `json:"provider_ids"`
	Trigger     Trigger  `json:"-"`
}

type GenerationReport struct {
	RunID      string           `json:"run_id"`
	MonthYear  period.MonthYear `json:"month"`
	Trigger    Trigger          `json:"trigger"`
	Results    []ProviderResult `json:"results"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// FailedCount is the number of providers whose generation errored.
func (r GenerationReport) FailedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			n++
		}
	}
	return n
}

type ListRequest struct {
	ProviderID string `form:"provider_id"`
	Month      string `form:"month"`
	Status     string `form:"status"`
	Limit      int    `form:"limit"`
}

type PayoutDetail struct {
	Payout  Payout               `json:"payout"`
	History []PayoutStatusChange `json:"history"`
	// UnclaimedDue is the provider's Pending share total for the same month,
	// earned after this payout was last generated.
	UnclaimedDue int64 `json:"unclaimed_due"`
}

type MarkProcessingRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type CompleteRequest struct {
	TransactionRef   string `json:"transaction_ref"`
	BankAccount      string `json:"bank_account"`
	PaymentMethod    string `json:"payment_method"`
	ExpectedTotalDue *int64 `json:"expected_total_due"`
}

type FailRequest struct {
	Reason string `json:"reason"`
}

var (
	ErrInvalidPayoutID        = errors.New("invalid_payout_id")
	ErrInvalidProvider        = errors.New("invalid_provider_id")
	ErrInvalidStatus          = errors.New("invalid_payout_status")
	ErrInvalidPaymentMethod   = errors.New("invalid_payment_method")
	ErrPayoutNotFound         = errors.New("payout_not_found")
	ErrRunNotFound            = errors.New("generation_run_not_found")
	ErrPayoutAlreadyCompleted = errors.New("payout_already_completed")
	ErrTransactionRefRequired = errors.New("transaction_ref_required")
	ErrFailureReasonRequired  = errors.New("failure_reason_required")
	ErrInvalidTransition      = errors.New("invalid_payout_transition")
	ErrTotalDueMismatch       = errors.New("payout_total_due_mismatch")
	ErrOpenPayoutExists       = errors.New("open_payout_exists")
	ErrConcurrentUpdate       = errors.New("payout_concurrent_update")
	ErrProviderBusy           = errors.New("payout_provider_busy")
)

// IsStateError reports whether err is a rejected ledger command.
func IsStateError(err error) bool {
	for _, target := range []error{
		ErrPayoutAlreadyCompleted,
		ErrTransactionRefRequired,
		ErrInvalidTransition,
		ErrTotalDueMismatch,
		ErrOpenPayoutExists,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

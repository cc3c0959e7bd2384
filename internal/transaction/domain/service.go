package domain

import (
	"context"
	"errors"
	"time"

	sharedomain "github.com/smallbiznis/revenueshare/internal/revenueshare/domain"
)

type Service interface {
	// ProcessCompletion stores a completed transaction, resolves its
	// attribution and records its revenue shares in one database transaction.
	// Redelivering the same event is a no-op that returns the stored outcome.
	ProcessCompletion(ctx context.Context, event CompletionEvent) (*CompletionResult, error)
	Get(ctx context.Context, id string) (*Transaction, error)
}

type CompletionEvent struct {
	TransactionID string    `json:"transaction_id"`
	PackageType   string    `json:"package_type"`
	ConsumerID    string    `json:"consumer_id"`
	TotalAmount   int64     `json:"total_amount"`
	Currency      string    `json:"currency"`
	Province      string    `json:"province"`
	CompletedAt   time.Time `json:"completed_at"`
}

type CompletionResult struct {
	Transaction Transaction                `json:"transaction"`
	Shares      []sharedomain.RevenueShare `json:"revenue_shares"`
	Warning     string                     `json:"warning,omitempty"`
	Replayed    bool                       `json:"replayed"`
}

const DefaultCurrency = "IDR"

var (
	ErrInvalidTransactionID = errors.New("invalid_transaction_id")
	ErrInvalidPackageType   = errors.New("invalid_package_type")
	ErrInvalidAmount        = errors.New("invalid_total_amount")
	ErrInvalidCompletedAt   = errors.New("invalid_completed_at")
	ErrInvalidConsumer      = errors.New("invalid_consumer_id")
	ErrProvinceRequired     = errors.New("province_required")
	ErrTransactionMismatch  = errors.New("transaction_redelivered_with_different_facts")
	ErrTransactionNotFound  = errors.New("transaction_not_found")
)

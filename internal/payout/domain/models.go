package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenueshare/internal/period"
	"gorm.io/datatypes"
)

type PayoutStatus string

const (
	StatusPending    PayoutStatus = "pending"
	StatusProcessing PayoutStatus = "processing"
	StatusCompleted  PayoutStatus = "completed"
	StatusFailed     PayoutStatus = "failed"
)

var transitions = map[PayoutStatus][]PayoutStatus{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusPending},
}

func (s PayoutStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Open reports whether the payout still accepts shares or settlement.
func (s PayoutStatus) Open() bool {
	return s == StatusPending || s == StatusProcessing
}

func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payout settles a provider's shares for one month. At most one open payout
// exists per (provider, month); Sequence counts payouts within that key.
type Payout struct {
	ID             snowflake.ID     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ProviderID     string           `json:"provider_id" gorm:"type:text;not null;uniqueIndex:ux_payouts_provider_month_seq,priority:1;uniqueIndex:ux_payouts_open,priority:1,where:status = 'pending' OR status = 'processing'"`
	MonthYear      period.MonthYear `json:"month_year" gorm:"type:char(7);not null;uniqueIndex:ux_payouts_provider_month_seq,priority:2;uniqueIndex:ux_payouts_open,priority:2,where:status = 'pending' OR status = 'processing'"`
	Sequence       int              `json:"sequence" gorm:"not null;uniqueIndex:ux_payouts_provider_month_seq,priority:3"`
	TotalDue       int64            `json:"total_due" gorm:"not null"`
	ShareCount     int64            `json:"share_count" gorm:"not null"`
	Status         PayoutStatus     `json:"status" gorm:"type:text;not null;index"`
	PaymentMethod  string           `json:"payment_method,omitempty" gorm:"type:text"`
	TransactionRef string           `json:"transaction_ref,omitempty" gorm:"type:text"`
	BankAccount    string           `json:"bank_account,omitempty" gorm:"type:text"`
	FailureReason  string           `json:"failure_reason,omitempty" gorm:"type:text"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time        `json:"updated_at" gorm:"not null"`
}

func (Payout) TableName() string { return "payouts" }

// PayoutStatusChange is one row of the append-only transition history.
type PayoutStatusChange struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	PayoutID   snowflake.ID `json:"payout_id" gorm:"not null;index"`
	FromStatus PayoutStatus `json:"from_status" gorm:"type:text"`
	ToStatus   PayoutStatus `json:"to_status" gorm:"type:text;not null"`
	Actor      string       `json:"actor" gorm:"type:text;not null"`
	Reason     string       `json:"reason,omitempty" gorm:"type:text"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null"`
}

func (PayoutStatusChange) TableName() string { return "payout_status_history" }

type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduler Trigger = "scheduler"
)

// PayoutGenerationRun records what one Generate call did for each provider.
type PayoutGenerationRun struct {
	ID         string           `json:"id" gorm:"primaryKey;type:text"`
	MonthYear  period.MonthYear `json:"month_year" gorm:"type:char(7);not null;index"`
	Trigger    Trigger          `json:"trigger" gorm:"column:triggered_by;type:text;not null"`
	Actor      string           `json:"actor" gorm:"type:text;not null"`
	Providers  int              `json:"providers" gorm:"not null"`
	Failed     int              `json:"failed" gorm:"not null"`
	Results    datatypes.JSON   `json:"results"`
	StartedAt  time.Time        `json:"started_at" gorm:"not null"`
	FinishedAt time.Time        `json:"finished_at" gorm:"not null"`
}

func (PayoutGenerationRun) TableName() string { return "payout_generation_runs" }

type Outcome string

const (
	OutcomeCreated           Outcome = "created"
	OutcomeUpdated           Outcome = "updated"
	OutcomeUnchanged         Outcome = "unchanged"
	OutcomeReopened          Outcome = "reopened"
	OutcomeSkippedProcessing Outcome = "skipped_processing"
	OutcomeNothingDue        Outcome = "nothing_due"
	OutcomeFailed            Outcome = "failed"
)

// ProviderResult is the outcome of generation for one provider.
type ProviderResult struct {
	ProviderID string  `json:"provider_id"`
	Outcome    Outcome `json:"outcome"`
	PayoutID   string  `json:"payout_id,omitempty"`
	Sequence   int     `json:"sequence,omitempty"`
	TotalDue   int64   `json:"total_due"`
	Claimed    int64   `json:"claimed_shares"`
	Attempts   int     `json:"attempts"`
	Error      string  `json:"error,omitempty"`
}

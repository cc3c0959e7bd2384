package guard

import (
	"errors"
	"time"

	"github.com/smallbiznis/revenueshare/internal/period"
)

var (
	ErrMonthNotClosed        = errors.New("payout_month_not_closed")
	ErrBeforeGenerationDay   = errors.New("before_payout_generation_day")
	ErrGenerationAlreadyDone = errors.New("payout_generation_already_done")
)

// EnsureMonthClosed rejects generating payouts for a month that has not ended.
func EnsureMonthClosed(month period.MonthYear, now time.Time) error {
	if now.UTC().Before(month.End()) {
		return ErrMonthNotClosed
	}
	return nil
}

// EnsureGenerationDue reports whether the scheduled run for the month before
// now may start.
func EnsureGenerationDue(now time.Time, generateDay int, lastDone period.MonthYear) error {
	now = now.UTC()
	if now.Day() < generateDay {
		return ErrBeforeGenerationDay
	}
	if lastDone == period.Of(now).Previous() {
		return ErrGenerationAlreadyDone
	}
	return nil
}

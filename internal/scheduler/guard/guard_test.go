package guard

import (
	"testing"
	"time"

	"github.com/smallbiznis/revenueshare/internal/period"
	"github.com/stretchr/testify/assert"
)

func TestEnsureMonthClosed(t *testing.T) {
	month := period.MonthYear("2025-10")

	assert.ErrorIs(t, EnsureMonthClosed(month, time.Date(2025, 10, 31, 23, 59, 59, 0, time.UTC)), ErrMonthNotClosed)
	assert.NoError(t, EnsureMonthClosed(month, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)))
}

func TestEnsureGenerationDue(t *testing.T) {
	now := time.Date(2025, 11, 3, 6, 0, 0, 0, time.UTC)

	assert.NoError(t, EnsureGenerationDue(now, 1, ""))
	assert.ErrorIs(t, EnsureGenerationDue(now, 5, ""), ErrBeforeGenerationDay)
	assert.ErrorIs(t, EnsureGenerationDue(now, 1, "2025-10"), ErrGenerationAlreadyDone)
	assert.NoError(t, EnsureGenerationDue(now, 1, "2025-09"))
}

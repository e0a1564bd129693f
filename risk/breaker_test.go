package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestBreakerTripsOnDailyLoss(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.DailyLossLimitPct = 0.05
	p.MaxDrawdownPct = 0.50

	cb := NewCircuitBreaker()
	cb.StartDay(day(1), 100000)

	cb.Observe(96000, 100000, p)
	assert.False(t, cb.Tripped(), "4%% loss should not trip a 5%% limit")

	cb.Observe(94000, 100000, p)
	assert.True(t, cb.Tripped())
	assert.Contains(t, cb.TripReason(), "daily loss")
}

func TestBreakerTripsOnDrawdown(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.DailyLossLimitPct = 0.50
	p.MaxDrawdownPct = 0.15

	cb := NewCircuitBreaker()
	cb.StartDay(day(1), 90000)

	cb.Observe(84000, 100000, p) // 16% off the peak
	assert.True(t, cb.Tripped())
	assert.Contains(t, cb.TripReason(), "drawdown")
}

func TestBreakerStickyIntraday(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.DailyLossLimitPct = 0.05

	cb := NewCircuitBreaker()
	cb.StartDay(day(1), 100000)
	cb.Observe(94000, 100000, p)
	assert.True(t, cb.Tripped())

	// Equity recovers above the trip threshold; the breaker stays tripped.
	cb.Observe(99000, 100000, p)
	assert.True(t, cb.Tripped())

	// Same-day StartDay is a no-op.
	cb.StartDay(day(1), 99000)
	assert.True(t, cb.Tripped())
}

func TestBreakerResetsAtDayBoundary(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.DailyLossLimitPct = 0.05

	cb := NewCircuitBreaker()
	cb.StartDay(day(1), 100000)
	cb.Observe(94000, 100000, p)
	assert.True(t, cb.Tripped())

	cb.StartDay(day(2), 94000)
	assert.False(t, cb.Tripped())
	assert.InDelta(t, 94000.0, cb.DayStartEquity(), 1e-9)
}

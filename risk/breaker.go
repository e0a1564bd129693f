package risk

import (
	"fmt"
	"time"

	"tradegate/market"
)

// CircuitBreaker halts new BUY admissions for the rest of the trading day
// after a daily-loss or drawdown breach. Two states: armed and tripped.
// Tripped is sticky intraday; the only way back to armed is the next
// trading-day boundary via StartDay. The breaker never reads the clock —
// callers pass the day — so replay and live behave identically.
type CircuitBreaker struct {
	tripped        bool
	tripReason     string
	dayStartEquity float64
	day            time.Time
}

func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{}
}

// StartDay resets the breaker for a new trading session. Calling it again
// for the same day is a no-op, so it is safe to call once per signal.
func (cb *CircuitBreaker) StartDay(day time.Time, equity float64) {
	d := market.Day(day)
	if !cb.day.IsZero() && cb.day.Equal(d) {
		return
	}
	cb.day = d
	cb.dayStartEquity = equity
	cb.tripped = false
	cb.tripReason = ""
}

// Observe checks current equity against the daily-loss and drawdown limits
// and trips the breaker on a breach. Once tripped it stays tripped for the
// day even if equity recovers.
func (cb *CircuitBreaker) Observe(equity, peakEquity float64, p Params) {
	if cb.tripped {
		return
	}
	if cb.dayStartEquity > 0 {
		loss := (cb.dayStartEquity - equity) / cb.dayStartEquity
		if loss >= p.DailyLossLimitPct {
			cb.tripped = true
			cb.tripReason = fmt.Sprintf("daily loss %.2f%% >= limit %.2f%%",
				100*loss, 100*p.DailyLossLimitPct)
			return
		}
	}
	if peakEquity > 0 {
		dd := (peakEquity - equity) / peakEquity
		if dd >= p.MaxDrawdownPct {
			cb.tripped = true
			cb.tripReason = fmt.Sprintf("drawdown %.2f%% >= limit %.2f%%",
				100*dd, 100*p.MaxDrawdownPct)
		}
	}
}

func (cb *CircuitBreaker) Tripped() bool { return cb.tripped }

func (cb *CircuitBreaker) TripReason() string { return cb.tripReason }

// DayStartEquity exposes the session-open equity the loss limit is
// measured against.
func (cb *CircuitBreaker) DayStartEquity() float64 { return cb.dayStartEquity }

// Package risk implements the admission-control layer: a candidate signal
// plus portfolio state in, an accept/reject/size decision out. Checks run
// in a fixed order and short-circuit at the first failure so the reported
// rejection reason — and therefore replay output — is reproducible.
package risk

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tradegate/market"
	"tradegate/portfolio"
	"tradegate/signal"
)

// Gate evaluates candidate signals against portfolio-wide constraints.
// Admission is portfolio-global (daily count, buying power, exposure
// caps), so Evaluate holds one mutex for the whole decision; only one
// signal is ever in flight per portfolio.
type Gate struct {
	mu      sync.Mutex
	params  atomic.Pointer[Params]
	breaker *CircuitBreaker
	sizer   Sizer
	sector  *SectorExposure
	corr    *Correlation
	log     *zap.Logger

	day time.Time
}

func NewGate(p Params, sectors market.SectorMap, history *market.History, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Gate{
		breaker: NewCircuitBreaker(),
		sector:  NewSectorExposure(sectors),
		corr:    NewCorrelation(history),
		log:     log,
	}
	g.params.Store(&p)
	return g
}

// SetParams swaps the active parameter set. The swap takes effect at the
// next Evaluate call; a decision in flight keeps the params it started
// with.
func (g *Gate) SetParams(p Params) { g.params.Store(&p) }

// Params returns the currently active parameter set.
func (g *Gate) Params() Params { return *g.params.Load() }

// Breaker exposes the circuit breaker for observability.
func (g *Gate) Breaker() *CircuitBreaker { return g.breaker }

// BeginDay rolls the gate to a new trading session: per-day counters
// reset, the breaker re-arms with the session's opening equity. No-op if
// the day has not changed.
func (g *Gate) BeginDay(day time.Time, state *portfolio.State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.beginDayLocked(day, state)
}

func (g *Gate) beginDayLocked(day time.Time, state *portfolio.State) {
	d := market.Day(day)
	if !g.day.IsZero() && g.day.Equal(d) {
		return
	}
	g.day = d
	state.ResetDay()
	g.breaker.StartDay(d, state.CurrentEquity)
	metricBreakerTripped.Set(0)
}

// Evaluate runs the ordered admission checks for one signal.
//
//  1. daily trade count (BUY only)
//  2. circuit breaker (BUY only)
//  3. max open positions
//  4. sector exposure
//  5. correlation exposure
//  6. position sizing vs floor and buying power
//
// SELL signals bypass every BUY-blocking check: risk controls must never
// prevent closing a losing position. On admission of a BUY the day-trade
// counter increments; a rejection leaves the state untouched.
func (g *Gate) Evaluate(sig signal.Signal, state *portfolio.State) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := *g.params.Load()
	metricSignalsEvaluated.Inc()

	g.beginDayLocked(sig.Time, state)
	g.breaker.Observe(state.CurrentEquity, state.PeakEquity, p)
	if g.breaker.Tripped() {
		metricBreakerTripped.Set(1)
	}

	switch sig.Action {
	case signal.Hold:
		return rejected(sig, ReasonNothingToDo)

	case signal.Sell:
		if _, held := state.Positions[sig.Symbol]; !held {
			return rejected(sig, ReasonNothingToDo)
		}
		return admitted(sig, state.PositionValue(sig.Symbol))

	case signal.Buy:
		return g.evaluateBuy(sig, state, p)
	}
	return rejected(sig, ReasonNothingToDo)
}

func (g *Gate) evaluateBuy(sig signal.Signal, state *portfolio.State, p Params) Decision {
	// 1. Daily trade count
	if state.DayTradeCount >= p.MaxDailyTrades {
		return g.reject(sig, ReasonDailyLimitReached)
	}

	// 2. Circuit breaker
	if g.breaker.Tripped() {
		g.log.Info("buy blocked by circuit breaker",
			zap.String("symbol", sig.Symbol),
			zap.String("trip_reason", g.breaker.TripReason()))
		return g.reject(sig, ReasonCircuitBreakerTripped)
	}

	// 3. Max open positions (a symbol already held may still add)
	if _, held := state.Positions[sig.Symbol]; !held && len(state.Positions) >= p.MaxPositions {
		return g.reject(sig, ReasonMaxPositionsReached)
	}

	// Estimated trade value for the exposure checks. The sizing decision
	// itself is check 6; this estimate uses the same arithmetic so the
	// exposure checks see the value that would actually be traded.
	estimate := math.Min(
		g.sizer.Size(sig.Strength, math.Inf(1), state.CurrentEquity, p),
		state.BuyingPower,
	)

	// 4. Sector exposure
	if frac, known := g.sector.ExposureAfter(sig.Symbol, estimate, state); !known {
		if p.StrictDataPolicy {
			return g.reject(sig, ReasonSectorExposureExceeded)
		}
		metricDegradedChecks.WithLabelValues("sector").Inc()
		g.log.Warn("sector check skipped: unknown sector",
			zap.String("symbol", sig.Symbol))
	} else if frac > p.MaxSectorExposurePct {
		return g.reject(sig, ReasonSectorExposureExceeded)
	}

	// 5. Correlation exposure
	frac, skipped := g.corr.CorrelatedExposure(sig.Symbol, sig.Time, state, p)
	if skipped > 0 {
		if p.StrictDataPolicy {
			return g.reject(sig, ReasonCorrelationExposureExceeded)
		}
		metricDegradedChecks.WithLabelValues("correlation").Inc()
		g.log.Warn("correlation pairs skipped: insufficient history",
			zap.String("symbol", sig.Symbol),
			zap.Int("pairs", skipped))
	}
	if frac > p.MaxCorrelatedExposurePct {
		return g.reject(sig, ReasonCorrelationExposureExceeded)
	}

	// 6. Position sizing
	raw := g.sizer.Size(sig.Strength, math.Inf(1), state.CurrentEquity, p)
	if raw < p.MinTradeValue {
		return g.reject(sig, ReasonBelowMinimumTradeValue)
	}
	value := math.Min(raw, state.BuyingPower)
	if value < p.MinTradeValue || value <= 0 {
		return g.reject(sig, ReasonInsufficientBuyingPower)
	}

	state.DayTradeCount++
	metricAdmitted.Inc()
	return admitted(sig, value)
}

func (g *Gate) reject(sig signal.Signal, reason RejectReason) Decision {
	metricRejected.WithLabelValues(string(reason)).Inc()
	return rejected(sig, reason)
}

// SectorFor resolves a symbol's sector for position bookkeeping after an
// admitted BUY.
func (g *Gate) SectorFor(symbol string) string { return g.sector.Sector(symbol) }

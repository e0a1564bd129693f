package risk

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"tradegate/market"
	"tradegate/portfolio"
)

// MinCorrelationObs is the minimum number of paired return observations a
// symbol pair needs before its correlation is trusted. Pairs with fewer
// observations are skipped.
const MinCorrelationObs = 10

// Correlation computes pairwise Pearson correlation of daily returns
// between a candidate symbol and every held symbol. Nothing is cached
// across days; correlations are recomputed per gating call from the price
// history so they can never go stale.
type Correlation struct {
	history *market.History
}

func NewCorrelation(history *market.History) *Correlation {
	return &Correlation{history: history}
}

// CorrelatedExposure returns the fraction of current equity held in
// positions whose return correlation with the candidate meets or exceeds
// threshold, plus the number of pairs skipped for insufficient history.
func (c *Correlation) CorrelatedExposure(symbol string, asOf time.Time, state *portfolio.State, p Params) (fraction float64, skippedPairs int) {
	if state.CurrentEquity <= 0 {
		return 0, 0
	}

	candRets := c.dateReturns(symbol, asOf, p.CorrelationLookbackDays)

	var correlatedValue float64
	for _, held := range state.Symbols() {
		if held == symbol {
			continue
		}
		heldRets := c.dateReturns(held, asOf, p.CorrelationLookbackDays)

		x, y := alignReturns(candRets, heldRets)
		if len(x) < MinCorrelationObs {
			skippedPairs++
			continue
		}
		if stat.Correlation(x, y, nil) >= p.CorrelationThreshold {
			correlatedValue += state.PositionValue(held)
		}
	}

	return correlatedValue / state.CurrentEquity, skippedPairs
}

// dateReturns computes close-to-close returns keyed by bar date so two
// series can be aligned even when one symbol skips a trading day.
func (c *Correlation) dateReturns(symbol string, asOf time.Time, lookback int) map[time.Time]float64 {
	s, ok := c.history.Series(symbol)
	if !ok {
		return nil
	}
	bars := s.BarsUpTo(asOf, lookback+1)
	if len(bars) < 2 {
		return nil
	}
	rets := make(map[time.Time]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		rets[bars[i].Date] = (bars[i].Close - prev) / prev
	}
	return rets
}

// alignReturns intersects two dated return sets into paired slices in
// deterministic (chronological) order.
func alignReturns(a, b map[time.Time]float64) (x, y []float64) {
	if len(a) == 0 || len(b) == 0 {
		return nil, nil
	}
	dates := make([]time.Time, 0, len(a))
	for d := range a {
		if _, ok := b[d]; ok {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	x = make([]float64, len(dates))
	y = make([]float64, len(dates))
	for i, d := range dates {
		x[i] = a[d]
		y[i] = b[d]
	}
	return x, y
}

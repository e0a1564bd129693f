package signal

import (
	"fmt"

	"tradegate/market"
	"tradegate/portfolio"
)

// HoldSource never trades. Useful as a baseline and in tests.
type HoldSource struct{}

func (HoldSource) Name() string { return "hold" }

func (HoldSource) Analyze(symbol string, bars []market.Bar, price float64, pos *portfolio.Position) Signal {
	sig := Signal{Symbol: symbol, Action: Hold, Reason: "hold baseline", ReferencePrice: price}
	if len(bars) > 0 {
		sig.Time = bars[len(bars)-1].Date
	}
	return sig
}

// Momentum emits BUY when the trailing return over Lookback bars exceeds
// Threshold and SELL when a held position's trailing return falls below
// -Threshold. Strength scales linearly with the magnitude of the move,
// capped at 1.
type Momentum struct {
	Lookback  int
	Threshold float64
}

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Analyze(symbol string, bars []market.Bar, price float64, pos *portfolio.Position) Signal {
	sig := Signal{Symbol: symbol, Action: Hold, ReferencePrice: price}
	if len(bars) > 0 {
		sig.Time = bars[len(bars)-1].Date
	}
	if len(bars) < m.Lookback+1 {
		sig.Reason = "insufficient history"
		return sig
	}

	first := bars[len(bars)-1-m.Lookback].Close
	if first == 0 {
		sig.Reason = "zero base price"
		return sig
	}
	ret := (price - first) / first

	strength := ret / (2 * m.Threshold)
	if m.Threshold == 0 {
		strength = 1
	}
	if strength < 0 {
		strength = -strength
	}
	if strength > 1 {
		strength = 1
	}

	switch {
	case ret > m.Threshold && pos == nil:
		sig.Action = Buy
		sig.Strength = strength
		sig.Reason = fmt.Sprintf("momentum up %.2f%% over %d days", ret*100, m.Lookback)
	case ret < -m.Threshold && pos != nil:
		sig.Action = Sell
		sig.Strength = strength
		sig.Reason = fmt.Sprintf("momentum down %.2f%% over %d days", ret*100, m.Lookback)
	default:
		sig.Reason = "no momentum edge"
	}
	return sig
}

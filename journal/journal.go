// Package journal persists replay output: executed trades, the daily
// equity curve, and per-run summaries. SQLite and CSV backends share one
// interface so the replay engine does not care where records land.
package journal

import "time"

// TradeRecord is one completed round-trip (or an open entry with zero
// exit fields) in the trade log.
type TradeRecord struct {
	TradeID    string
	RunID      string
	Symbol     string
	Side       string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	EntryTime  time.Time
	ExitTime   time.Time
	PnL        float64
	Reason     string
}

// EquitySnapshot is one point on the equity curve.
type EquitySnapshot struct {
	RunID         string
	Time          time.Time
	Cash          float64
	Equity        float64
	PeakEquity    float64
	OpenPositions int
}

// RunRecord summarizes a completed replay run.
type RunRecord struct {
	RunID          string
	Strategy       string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalEquity    float64
	TotalReturn    float64
	SharpeRatio    float64
	MaxDrawdown    float64
	Trades         int
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	RecordRun(RunRecord) error
	Close() error
}

// Nop discards everything. Used when a run does not need persistence.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) RecordRun(RunRecord) error         { return nil }
func (Nop) Close() error                      { return nil }

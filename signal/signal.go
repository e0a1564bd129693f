// Package signal defines the trading signal model and the pluggable
// strategy interface that produces signals. Strategy math itself is a
// collaborator; the gating core only consumes the Signal values.
package signal

import (
	"time"

	"tradegate/market"
	"tradegate/portfolio"
)

type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
	Hold Action = "HOLD"
)

// Signal is a candidate trade emitted by a strategy. Immutable once
// produced; the gate consumes it exactly once.
type Signal struct {
	Symbol         string    `json:"symbol"`
	Action         Action    `json:"action"`
	Strength       float64   `json:"strength"` // [0,1]
	Reason         string    `json:"reason"`
	ReferencePrice float64   `json:"reference_price"`
	Time           time.Time `json:"time"`
}

// Source analyzes one symbol and returns a Signal. Implementations must be
// pure with respect to their inputs: no clock reads, no data beyond the
// bars they are handed. That purity is what makes replay deterministic.
type Source interface {
	Name() string
	Analyze(symbol string, bars []market.Bar, price float64, pos *portfolio.Position) Signal
}

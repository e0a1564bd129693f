// Package portfolio owns the cash, position, and equity bookkeeping shared
// by the risk gate, the execution simulator, and the live loop. The State
// value is mutated only through admitted, filled decisions; the gate reads
// it but never writes position or cash fields.
package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// Position is an open all-or-nothing holding. Partial sells are not
// modeled; a SELL fully liquidates.
type Position struct {
	Symbol     string    `json:"symbol"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
	Sector     string    `json:"sector"`
	StopPrice  float64   `json:"stop_price,omitempty"` // 0 means none
}

// MarketValue values the position at the given price.
func (p Position) MarketValue(price float64) float64 {
	return p.Quantity * price
}

// State is the portfolio-global state every admission decision reads.
// Invariants: sum(position value) + cash == CurrentEquity at each
// observation point, and BuyingPower <= Cash.
type State struct {
	Cash             float64              `json:"cash"`
	BuyingPower      float64              `json:"buying_power"`
	Positions        map[string]*Position `json:"positions"`
	DayTradeCount    int                  `json:"day_trade_count"`
	RealizedPnLToday float64              `json:"realized_pnl_today"`
	PeakEquity       float64              `json:"peak_equity"`
	CurrentEquity    float64              `json:"current_equity"`

	lastPrices map[string]float64
}

func NewState(initialCapital float64) *State {
	return &State{
		Cash:          initialCapital,
		BuyingPower:   initialCapital,
		Positions:     make(map[string]*Position),
		PeakEquity:    initialCapital,
		CurrentEquity: initialCapital,
	}
}

// Symbols returns held symbols in sorted order so iteration is
// reproducible across runs.
func (s *State) Symbols() []string {
	syms := make([]string, 0, len(s.Positions))
	for sym := range s.Positions {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}

// MarkPrice records the latest observed price for a symbol. Revalue uses
// these marks; positions without a mark fall back to entry price.
func (s *State) MarkPrice(symbol string, price float64) {
	if s.lastPrices == nil {
		s.lastPrices = make(map[string]float64)
	}
	s.lastPrices[symbol] = price
}

func (s *State) markFor(p *Position) float64 {
	if px, ok := s.lastPrices[p.Symbol]; ok && px > 0 {
		return px
	}
	return p.EntryPrice
}

// PositionValue returns the marked value of a held position, or 0 if the
// symbol is not held.
func (s *State) PositionValue(symbol string) float64 {
	p, ok := s.Positions[symbol]
	if !ok {
		return 0
	}
	return p.MarketValue(s.markFor(p))
}

// Revalue recomputes CurrentEquity from cash plus marked position values
// and advances PeakEquity.
func (s *State) Revalue() {
	equity := s.Cash
	for _, p := range s.Positions {
		equity += p.MarketValue(s.markFor(p))
	}
	s.CurrentEquity = equity
	if equity > s.PeakEquity {
		s.PeakEquity = equity
	}
}

// ResetDay clears the per-day counters at a trading-day boundary.
func (s *State) ResetDay() {
	s.DayTradeCount = 0
	s.RealizedPnLToday = 0
}

// ErrInsufficientCash means a fill arrived that the current cash can no
// longer cover, typically because earlier fills the same day consumed it.
// The order fails cleanly and the books stay untouched.
var ErrInsufficientCash = errors.New("insufficient cash for fill")

// ApplyBuy books an admitted, filled BUY: cash out, position in. The fill
// must already include slippage and commission.
func (s *State) ApplyBuy(symbol, sector string, qty, fillPrice, commission float64, at time.Time) error {
	cost := qty*fillPrice + commission
	if cost > s.Cash+1e-9 {
		return fmt.Errorf("buy %s: cost %.2f exceeds cash %.2f: %w", symbol, cost, s.Cash, ErrInsufficientCash)
	}
	s.Cash -= cost
	if s.BuyingPower > s.Cash {
		s.BuyingPower = s.Cash
	}
	if prev, ok := s.Positions[symbol]; ok {
		// Adding to a held symbol averages the entry; the original entry
		// time is kept.
		total := prev.Quantity + qty
		prev.EntryPrice = (prev.Quantity*prev.EntryPrice + qty*fillPrice) / total
		prev.Quantity = total
	} else {
		s.Positions[symbol] = &Position{
			Symbol:     symbol,
			Quantity:   qty,
			EntryPrice: fillPrice,
			EntryTime:  at,
			Sector:     sector,
		}
	}
	s.MarkPrice(symbol, fillPrice)
	s.Revalue()
	return nil
}

// ApplySell books an admitted, filled SELL, fully liquidating the
// position. Returns the realized P&L net of commission.
func (s *State) ApplySell(symbol string, fillPrice, commission float64) (float64, error) {
	p, ok := s.Positions[symbol]
	if !ok {
		return 0, fmt.Errorf("sell %s: no open position", symbol)
	}
	proceeds := p.Quantity*fillPrice - commission
	pnl := proceeds - p.Quantity*p.EntryPrice
	s.Cash += proceeds
	s.BuyingPower += proceeds
	if s.BuyingPower > s.Cash {
		s.BuyingPower = s.Cash
	}
	s.RealizedPnLToday += pnl
	delete(s.Positions, symbol)
	s.Revalue()
	return pnl, nil
}

// InvariantError reports programmer-error state corruption. It is fatal to
// the current cycle and must never be silently absorbed.
type InvariantError struct {
	Invariant string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("portfolio invariant violated (%s): %s", e.Invariant, e.Detail)
}

// CheckInvariants verifies the accounting identities. Call after every
// fill; a non-nil result means the books are corrupt.
func (s *State) CheckInvariants() error {
	if s.Cash < -1e-6 {
		return &InvariantError{Invariant: "cash >= 0", Detail: fmt.Sprintf("cash %.6f", s.Cash)}
	}
	if s.BuyingPower > s.Cash+1e-6 {
		return &InvariantError{
			Invariant: "buying_power <= cash",
			Detail:    fmt.Sprintf("buying_power %.6f cash %.6f", s.BuyingPower, s.Cash),
		}
	}
	sum := s.Cash
	for _, p := range s.Positions {
		sum += p.MarketValue(s.markFor(p))
	}
	if math.Abs(sum-s.CurrentEquity) > 1e-6*math.Max(1, math.Abs(s.CurrentEquity)) {
		return &InvariantError{
			Invariant: "cash + positions == equity",
			Detail:    fmt.Sprintf("sum %.6f equity %.6f", sum, s.CurrentEquity),
		}
	}
	return nil
}

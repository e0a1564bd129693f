// Package sim applies admitted decisions to the portfolio during replay:
// slippage and commission on the fill price, then atomic cash/position
// bookkeeping. The live system forwards admitted decisions to a brokerage
// collaborator instead; everything else upstream is identical.
package sim

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradegate/market"
	"tradegate/portfolio"
	"tradegate/risk"
)

// Fill describes one executed order.
type Fill struct {
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"` // BUY or SELL
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Time      time.Time `json:"time"`
	Reason    string    `json:"reason"`
	RealizedP float64   `json:"realized_pnl"` // SELL only
}

// Simulator executes admitted decisions against an owned portfolio State.
// Failed fills leave the State untouched; a portfolio.InvariantError after
// bookkeeping is fatal to the cycle and propagated loudly.
type Simulator struct {
	state *portfolio.State
	log   *zap.Logger
}

func NewSimulator(state *portfolio.State, log *zap.Logger) *Simulator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulator{state: state, log: log}
}

func (s *Simulator) State() *portfolio.State { return s.state }

// BuyPrice applies slippage against the trader: a buy fills worse (higher)
// than the raw open.
func BuyPrice(open, slippagePct float64) float64 { return open * (1 + slippagePct) }

// SellPrice applies slippage against the trader: a sell fills worse
// (lower) than the raw open.
func SellPrice(open, slippagePct float64) float64 { return open * (1 - slippagePct) }

// FillBuy executes an admitted BUY at the given bar's open. The admitted
// trade value covers commission, so the booked quantity is computed from
// the net amount.
func (s *Simulator) FillBuy(dec risk.Decision, bar market.Bar, sector string, p risk.Params) (Fill, error) {
	price := BuyPrice(bar.Open, p.SlippagePct)
	if price <= 0 {
		return Fill{}, fmt.Errorf("fill buy %s: non-positive open %.4f", dec.Signal.Symbol, bar.Open)
	}
	net := dec.TradeValue - p.Commission
	if net <= 0 {
		return Fill{}, fmt.Errorf("fill buy %s: trade value %.2f does not cover commission", dec.Signal.Symbol, dec.TradeValue)
	}
	qty := net / price

	if err := s.state.ApplyBuy(dec.Signal.Symbol, sector, qty, price, p.Commission, bar.Date); err != nil {
		return Fill{}, err
	}
	if p.StopLossPct > 0 {
		if pos, ok := s.state.Positions[dec.Signal.Symbol]; ok {
			pos.StopPrice = pos.EntryPrice * (1 - p.StopLossPct)
		}
	}
	if err := s.state.CheckInvariants(); err != nil {
		return Fill{}, err
	}

	return Fill{
		Symbol:   dec.Signal.Symbol,
		Side:     "BUY",
		Quantity: qty,
		Price:    price,
		Time:     bar.Date,
		Reason:   dec.Signal.Reason,
	}, nil
}

// FillSell fully liquidates the position at the given bar's open.
func (s *Simulator) FillSell(symbol, reason string, bar market.Bar, p risk.Params) (Fill, error) {
	pos, ok := s.state.Positions[symbol]
	if !ok {
		return Fill{}, fmt.Errorf("fill sell %s: no open position", symbol)
	}
	price := SellPrice(bar.Open, p.SlippagePct)
	qty := pos.Quantity

	pnl, err := s.state.ApplySell(symbol, price, p.Commission)
	if err != nil {
		return Fill{}, err
	}
	if err := s.state.CheckInvariants(); err != nil {
		return Fill{}, err
	}

	return Fill{
		Symbol:    symbol,
		Side:      "SELL",
		Quantity:  qty,
		Price:     price,
		Time:      bar.Date,
		Reason:    reason,
		RealizedP: pnl,
	}, nil
}

// StopHit reports whether the day's bar triggers a position's protective
// stop, and the exit price if so. A gap below the stop fills at the open;
// otherwise the stop price itself fills. Stop-first is the worst case for
// the trader and keeps replay conservative.
func StopHit(pos *portfolio.Position, bar market.Bar) (float64, bool) {
	if pos.StopPrice <= 0 {
		return 0, false
	}
	if bar.Open <= pos.StopPrice {
		return bar.Open, true
	}
	if bar.Low <= pos.StopPrice {
		return pos.StopPrice, true
	}
	return 0, false
}

// FillStop closes a stopped-out position at the triggered exit price,
// still charging slippage and commission.
func (s *Simulator) FillStop(symbol string, exitPrice float64, day time.Time, p risk.Params) (Fill, error) {
	pos, ok := s.state.Positions[symbol]
	if !ok {
		return Fill{}, fmt.Errorf("fill stop %s: no open position", symbol)
	}
	price := SellPrice(exitPrice, p.SlippagePct)
	qty := pos.Quantity

	pnl, err := s.state.ApplySell(symbol, price, p.Commission)
	if err != nil {
		return Fill{}, err
	}
	if err := s.state.CheckInvariants(); err != nil {
		return Fill{}, err
	}

	s.log.Debug("stop loss filled",
		zap.String("symbol", symbol),
		zap.Float64("price", price),
		zap.Float64("pnl", pnl))

	return Fill{
		Symbol:    symbol,
		Side:      "SELL",
		Quantity:  qty,
		Price:     price,
		Time:      market.Day(day),
		Reason:    "StopLoss",
		RealizedP: pnl,
	}, nil
}

// Package replay drives the risk gate over historical daily bars exactly
// as the live loop would, with three hard guarantees: no signal ever sees
// a bar dated after its own day, trading days process in strict
// chronological order, and identical inputs always yield an identical
// equity curve and trade log.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"tradegate/internal/id"
	"tradegate/journal"
	"tradegate/market"
	"tradegate/portfolio"
	"tradegate/risk"
	"tradegate/signal"
	"tradegate/sim"
)

// ErrInsufficientHistory means the date range holds fewer trading days
// than the warm-up requires. The run refuses to start rather than produce
// misleading partial results.
var ErrInsufficientHistory = errors.New("replay: insufficient history for warm-up")

// WarmupBuffer is the fixed number of trading days added on top of the
// lookback before the first signal is evaluated.
const WarmupBuffer = 5

// Config describes one replay run.
type Config struct {
	Strategy       signal.Source
	History        *market.History
	Sectors        market.SectorMap
	Start, End     time.Time
	InitialCapital float64
	Params         risk.Params

	// LookbackDays is how much history each Analyze call receives. Zero
	// defaults to the correlation lookback, which is also the minimum.
	LookbackDays int

	Journal journal.Journal // nil means no persistence
	Log     *zap.Logger
}

// Engine runs one replay. Strictly single-threaded: correctness depends on
// processing days in order against an exclusively owned portfolio state.
type Engine struct {
	cfg   Config
	log   *zap.Logger
	state *portfolio.State
	gate  *risk.Gate
	sim   *sim.Simulator

	tradeSeq int
}

// pendingOrder is a decision admitted on day d, awaiting its fill at the
// next trading day's open.
type pendingOrder struct {
	decision risk.Decision
	sector   string
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Strategy == nil {
		return nil, fmt.Errorf("replay: Strategy is required")
	}
	if cfg.History == nil {
		return nil, fmt.Errorf("replay: History is required")
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("replay: InitialCapital must be positive")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if cfg.LookbackDays < cfg.Params.CorrelationLookbackDays {
		cfg.LookbackDays = cfg.Params.CorrelationLookbackDays
	}
	if cfg.Sectors == nil {
		cfg.Sectors = market.StaticSectorMap{}
	}
	if cfg.Journal == nil {
		cfg.Journal = journal.Nop{}
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	state := portfolio.NewState(cfg.InitialCapital)
	return &Engine{
		cfg:   cfg,
		log:   cfg.Log,
		state: state,
		gate:  risk.NewGate(cfg.Params, cfg.Sectors, cfg.History, cfg.Log),
		sim:   sim.NewSimulator(state, cfg.Log),
	}, nil
}

// Run executes the replay over the configured date range.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	days := e.cfg.History.TradingDays(e.cfg.Start, e.cfg.End)
	warmup := e.cfg.LookbackDays + WarmupBuffer
	if len(days) <= warmup {
		return nil, fmt.Errorf("%w: have %d trading days, need more than %d",
			ErrInsufficientHistory, len(days), warmup)
	}

	res := &Result{
		RunID:          id.New(),
		Strategy:       e.cfg.Strategy.Name(),
		Start:          market.Day(e.cfg.Start),
		End:            market.Day(e.cfg.End),
		InitialCapital: e.cfg.InitialCapital,
	}
	p := e.cfg.Params

	var pending []pendingOrder

	for i, day := range days {
		// Cancellation is checked only between trading days so an
		// in-flight day always completes with well-defined state.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Morning: mark opens, roll the session, fill yesterday's
		// admissions at today's open.
		e.markPrices(day, true)
		e.state.Revalue()
		e.gate.BeginDay(day, e.state)

		if err := e.fillPending(pending, day, p, res); err != nil {
			return nil, err
		}
		pending = pending[:0]

		// Stop-losses run before any new signal for the day.
		if err := e.checkStops(day, p, res); err != nil {
			return nil, err
		}

		// Close of day: mark closes, then generate and gate signals.
		e.markPrices(day, false)
		e.state.Revalue()

		if i >= warmup {
			pending = e.gateSignals(day, p)
		}

		e.snapshot(day, res)
	}

	res.FinalEquity = e.state.CurrentEquity
	res.Metrics = computeMetrics(res.EquityCurve, res.Trades, res.InitialCapital)

	if err := e.persist(res); err != nil {
		return nil, fmt.Errorf("replay: journal: %w", err)
	}
	return res, nil
}

// markPrices records each symbol's open or close for the day in the
// portfolio's mark table. Symbols without a bar keep their prior mark.
func (e *Engine) markPrices(day time.Time, open bool) {
	for _, sym := range e.cfg.History.Symbols() {
		s, _ := e.cfg.History.Series(sym)
		bar, ok := s.BarOn(day)
		if !ok {
			continue
		}
		if open {
			e.state.MarkPrice(sym, bar.Open)
		} else {
			e.state.MarkPrice(sym, bar.Close)
		}
	}
}

func (e *Engine) fillPending(pending []pendingOrder, day time.Time, p risk.Params, res *Result) error {
	for _, po := range pending {
		symb := po.decision.Signal.Symbol
		s, ok := e.cfg.History.Series(symb)
		if !ok {
			continue
		}
		bar, ok := s.BarOn(day)
		if !ok {
			// Symbol did not trade today; the order lapses rather than
			// filling on stale data.
			e.log.Warn("order lapsed: no bar on fill day",
				zap.String("symbol", symb),
				zap.Time("day", day))
			continue
		}

		switch po.decision.Signal.Action {
		case signal.Buy:
			fill, err := e.sim.FillBuy(po.decision, bar, po.sector, p)
			if err != nil {
				var inv *portfolio.InvariantError
				if errors.As(err, &inv) {
					return err
				}
				e.log.Warn("buy fill failed", zap.String("symbol", symb), zap.Error(err))
				continue
			}
			res.Trades = append(res.Trades, e.entryRecord(fill))

		case signal.Sell:
			pos, held := e.state.Positions[symb]
			if !held {
				continue
			}
			entry := *pos
			fill, err := e.sim.FillSell(symb, po.decision.Signal.Reason, bar, p)
			if err != nil {
				var inv *portfolio.InvariantError
				if errors.As(err, &inv) {
					return err
				}
				e.log.Warn("sell fill failed", zap.String("symbol", symb), zap.Error(err))
				continue
			}
			res.Trades = append(res.Trades, e.exitRecord(entry, fill))
		}
	}
	return nil
}

func (e *Engine) checkStops(day time.Time, p risk.Params, res *Result) error {
	for _, symb := range e.state.Symbols() {
		pos := e.state.Positions[symb]
		s, ok := e.cfg.History.Series(symb)
		if !ok {
			continue
		}
		bar, ok := s.BarOn(day)
		if !ok {
			continue
		}
		exitPx, hit := sim.StopHit(pos, bar)
		if !hit {
			continue
		}
		entry := *pos
		fill, err := e.sim.FillStop(symb, exitPx, day, p)
		if err != nil {
			return err
		}
		res.Trades = append(res.Trades, e.exitRecord(entry, fill))
	}
	return nil
}

// gateSignals builds each symbol's history strictly up to and including
// the current day and routes the strategy's signal through the gate. The
// returned admissions fill at the next trading day's open.
func (e *Engine) gateSignals(day time.Time, p risk.Params) []pendingOrder {
	var pending []pendingOrder
	for _, symb := range e.cfg.History.Symbols() {
		s, _ := e.cfg.History.Series(symb)
		bar, ok := s.BarOn(day)
		if !ok {
			continue
		}
		bars := s.BarsUpTo(day, e.cfg.LookbackDays)

		sig := e.cfg.Strategy.Analyze(symb, bars, bar.Close, e.state.Positions[symb])
		sig.Time = market.Day(day)

		dec := e.gate.Evaluate(sig, e.state)
		if !dec.Admitted {
			if dec.Reason != risk.ReasonNothingToDo {
				e.log.Debug("signal rejected",
					zap.String("symbol", symb),
					zap.String("reason", string(dec.Reason)))
			}
			continue
		}
		pending = append(pending, pendingOrder{
			decision: dec,
			sector:   e.gate.SectorFor(symb),
		})
	}
	return pending
}

func (e *Engine) snapshot(day time.Time, res *Result) {
	res.EquityCurve = append(res.EquityCurve, EquityPoint{
		Date:          market.Day(day),
		Cash:          e.state.Cash,
		Equity:        e.state.CurrentEquity,
		PeakEquity:    e.state.PeakEquity,
		OpenPositions: len(e.state.Positions),
	})
}

func (e *Engine) nextTradeID() string {
	e.tradeSeq++
	return fmt.Sprintf("T-%06d", e.tradeSeq)
}

func (e *Engine) entryRecord(fill sim.Fill) journal.TradeRecord {
	return journal.TradeRecord{
		TradeID:    e.nextTradeID(),
		Symbol:     fill.Symbol,
		Side:       fill.Side,
		Quantity:   fill.Quantity,
		EntryPrice: fill.Price,
		EntryTime:  fill.Time,
		Reason:     fill.Reason,
	}
}

func (e *Engine) exitRecord(entry portfolio.Position, fill sim.Fill) journal.TradeRecord {
	return journal.TradeRecord{
		TradeID:    e.nextTradeID(),
		Symbol:     fill.Symbol,
		Side:       fill.Side,
		Quantity:   fill.Quantity,
		EntryPrice: entry.EntryPrice,
		ExitPrice:  fill.Price,
		EntryTime:  entry.EntryTime,
		ExitTime:   fill.Time,
		PnL:        fill.RealizedP,
		Reason:     fill.Reason,
	}
}

// persist stamps the run ID onto every record and writes the run to the
// journal. The Result itself keeps empty RunID fields on trades so two
// identical runs export identical trade logs.
func (e *Engine) persist(res *Result) error {
	j := e.cfg.Journal
	for _, t := range res.Trades {
		t.RunID = res.RunID
		if err := j.RecordTrade(t); err != nil {
			return err
		}
	}
	for _, pt := range res.EquityCurve {
		if err := j.RecordEquity(journal.EquitySnapshot{
			RunID:         res.RunID,
			Time:          pt.Date,
			Cash:          pt.Cash,
			Equity:        pt.Equity,
			PeakEquity:    pt.PeakEquity,
			OpenPositions: pt.OpenPositions,
		}); err != nil {
			return err
		}
	}
	return j.RecordRun(journal.RunRecord{
		RunID:          res.RunID,
		Strategy:       res.Strategy,
		Start:          res.Start,
		End:            res.End,
		InitialCapital: res.InitialCapital,
		FinalEquity:    res.FinalEquity,
		TotalReturn:    res.Metrics.TotalReturn,
		SharpeRatio:    res.Metrics.SharpeRatio,
		MaxDrawdown:    res.Metrics.MaxDrawdown,
		Trades:         len(res.Trades),
	})
}

// RunSweep executes independent replay runs concurrently. Each run owns an
// isolated portfolio state; nothing is shared across runs.
func RunSweep(ctx context.Context, cfgs []Config) ([]*Result, error) {
	results := make([]*Result, len(cfgs))
	errs := make([]error, len(cfgs))

	var wg sync.WaitGroup
	for i := range cfgs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			eng, err := NewEngine(cfgs[i])
			if err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = eng.Run(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

package replay

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/journal"
	"tradegate/market"
	"tradegate/portfolio"
	"tradegate/risk"
	"tradegate/signal"
)

var replayStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// scripted buys named symbols on named days and otherwise holds. Pure by
// construction, like any well-behaved strategy.
type scripted struct {
	buys  map[time.Time]string
	sells map[time.Time]string
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Analyze(symbol string, bars []market.Bar, price float64, pos *portfolio.Position) signal.Signal {
	sig := signal.Signal{Symbol: symbol, Action: signal.Hold, ReferencePrice: price}
	if len(bars) == 0 {
		return sig
	}
	day := bars[len(bars)-1].Date
	sig.Time = day
	if s.buys[day] == symbol && pos == nil {
		sig.Action = signal.Buy
		sig.Strength = 0.9
		sig.Reason = "scripted buy"
	}
	if s.sells[day] == symbol && pos != nil {
		sig.Action = signal.Sell
		sig.Strength = 0.9
		sig.Reason = "scripted sell"
	}
	return sig
}

func flatBars(n int, price float64) []market.Bar {
	bars := make([]market.Bar, n)
	for i := range bars {
		bars[i] = market.Bar{
			Date:   market.Day(replayStart.AddDate(0, 0, i)),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 1000,
		}
	}
	return bars
}

func flatHistory(t *testing.T, symbol string, n int, price float64) *market.History {
	t.Helper()
	s, err := market.NewSeries(symbol, flatBars(n, price))
	require.NoError(t, err)
	h := market.NewHistory()
	h.Add(s)
	return h
}

func replayParams() risk.Params {
	p := risk.DefaultParams()
	p.CorrelationLookbackDays = 5 // warmup = 10 trading days
	return p
}

func replayDay(i int) time.Time { return market.Day(replayStart.AddDate(0, 0, i)) }

func TestReplayFlatHoldProducesFlatCurve(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine(Config{
		Strategy:       signal.HoldSource{},
		History:        flatHistory(t, "AAA", 20, 100),
		Start:          replayStart,
		End:            replayStart.AddDate(0, 0, 30),
		InitialCapital: 100000,
		Params:         replayParams(),
	})
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	require.Len(t, res.EquityCurve, 20)
	for _, pt := range res.EquityCurve {
		assert.InDelta(t, 100000.0, pt.Equity, 1e-9)
	}
	assert.Zero(t, res.Metrics.TotalReturn)
	assert.Zero(t, res.Metrics.MaxDrawdown)
	assert.Zero(t, res.Metrics.SharpeRatio)
	assert.InDelta(t, 100000.0, res.FinalEquity, 1e-9)
}

func TestReplayInsufficientHistory(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine(Config{
		Strategy:       signal.HoldSource{},
		History:        flatHistory(t, "AAA", 8, 100), // warmup needs > 10
		Start:          replayStart,
		End:            replayStart.AddDate(0, 0, 30),
		InitialCapital: 100000,
		Params:         replayParams(),
	})
	require.NoError(t, err)

	_, err = eng.Run(context.Background())
	require.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestReplayFillsAtNextOpenWithSlippage(t *testing.T) {
	t.Parallel()

	buyDay := replayDay(12)
	eng, err := NewEngine(Config{
		Strategy:       &scripted{buys: map[time.Time]string{buyDay: "AAA"}},
		History:        flatHistory(t, "AAA", 20, 100),
		Start:          replayStart,
		End:            replayStart.AddDate(0, 0, 30),
		InitialCapital: 100000,
		Params:         replayParams(),
	})
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, "T-000001", tr.TradeID)
	assert.Equal(t, "BUY", tr.Side)
	assert.Equal(t, "AAA", tr.Symbol)
	// Admitted at day 12's close, filled at day 13's open, slipped upward.
	assert.Equal(t, replayDay(13), tr.EntryTime)
	assert.InDelta(t, 100*1.001, tr.EntryPrice, 1e-9)
	// The sized value covers commission; quantity comes from the net.
	assert.InDelta(t, (20000.0-1)/100.1, tr.Quantity, 1e-9)
	assert.Empty(t, tr.RunID, "exported trades carry no run identity")
}

func TestReplayRoundTripSell(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine(Config{
		Strategy: &scripted{
			buys:  map[time.Time]string{replayDay(12): "AAA"},
			sells: map[time.Time]string{replayDay(15): "AAA"},
		},
		History:        flatHistory(t, "AAA", 20, 100),
		Start:          replayStart,
		End:            replayStart.AddDate(0, 0, 30),
		InitialCapital: 100000,
		Params:         replayParams(),
	})
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	exit := res.Trades[1]
	assert.Equal(t, "SELL", exit.Side)
	assert.Equal(t, replayDay(13), exit.EntryTime)
	assert.Equal(t, replayDay(16), exit.ExitTime)
	// Flat market: the round trip loses exactly slippage plus commissions.
	assert.Negative(t, exit.PnL)

	last := res.EquityCurve[len(res.EquityCurve)-1]
	assert.Zero(t, last.OpenPositions)
	assert.InDelta(t, last.Equity, last.Cash, 1e-9)
}

func TestReplayStopLossExit(t *testing.T) {
	t.Parallel()

	bars := flatBars(20, 100)
	bars[15].Low = 90 // intraday plunge through the 5% stop
	s, err := market.NewSeries("AAA", bars)
	require.NoError(t, err)
	h := market.NewHistory()
	h.Add(s)

	eng, err := NewEngine(Config{
		Strategy:       &scripted{buys: map[time.Time]string{replayDay(12): "AAA"}},
		History:        h,
		Start:          replayStart,
		End:            replayStart.AddDate(0, 0, 30),
		InitialCapital: 100000,
		Params:         replayParams(),
	})
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	exit := res.Trades[1]
	assert.Equal(t, "SELL", exit.Side)
	assert.Equal(t, "StopLoss", exit.Reason)
	assert.Equal(t, replayDay(15), exit.ExitTime)
	assert.Negative(t, exit.PnL)
	assert.Zero(t, res.EquityCurve[len(res.EquityCurve)-1].OpenPositions)
}

func TestReplayDeterministic(t *testing.T) {
	t.Parallel()

	cfg := func() Config {
		return Config{
			Strategy: &scripted{
				buys:  map[time.Time]string{replayDay(12): "AAA"},
				sells: map[time.Time]string{replayDay(16): "AAA"},
			},
			History:        flatHistory(t, "AAA", 20, 100),
			Start:          replayStart,
			End:            replayStart.AddDate(0, 0, 30),
			InitialCapital: 100000,
			Params:         replayParams(),
		}
	}

	run := func() *Result {
		eng, err := NewEngine(cfg())
		require.NoError(t, err)
		res, err := eng.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	a, b := run(), run()

	assert.NotEqual(t, a.RunID, b.RunID, "run identity is unique")
	assert.Equal(t, a.EquityCurve, b.EquityCurve)
	assert.Equal(t, a.Trades, b.Trades)
	assert.Equal(t, a.Metrics, b.Metrics)
	assert.Equal(t, a.FinalEquity, b.FinalEquity)
}

func TestReplayIgnoresBarsAfterWindow(t *testing.T) {
	t.Parallel()

	// Two histories identical through day 19; the second then crashes 90%.
	// A replay ending at day 19 must not see the difference.
	quiet := flatBars(20, 100)
	noisy := flatBars(30, 100)
	for i := 20; i < 30; i++ {
		noisy[i].Open, noisy[i].High, noisy[i].Low, noisy[i].Close = 10, 10, 10, 10
	}

	build := func(bars []market.Bar) *market.History {
		s, err := market.NewSeries("AAA", bars)
		require.NoError(t, err)
		h := market.NewHistory()
		h.Add(s)
		return h
	}

	run := func(h *market.History) *Result {
		eng, err := NewEngine(Config{
			Strategy:       &scripted{buys: map[time.Time]string{replayDay(12): "AAA"}},
			History:        h,
			Start:          replayStart,
			End:            replayDay(19),
			InitialCapital: 100000,
			Params:         replayParams(),
		})
		require.NoError(t, err)
		res, err := eng.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	a, b := run(build(quiet)), run(build(noisy))
	assert.Equal(t, a.EquityCurve, b.EquityCurve)
	assert.Equal(t, a.Trades, b.Trades)
	assert.Equal(t, a.Metrics, b.Metrics)
}

func TestReplayResultJSONRoundTrip(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine(Config{
		Strategy: &scripted{
			buys:  map[time.Time]string{replayDay(12): "AAA"},
			sells: map[time.Time]string{replayDay(16): "AAA"},
		},
		History:        flatHistory(t, "AAA", 20, 100),
		Start:          replayStart,
		End:            replayStart.AddDate(0, 0, 30),
		InitialCapital: 100000,
		Params:         replayParams(),
	})
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, res.SaveJSON(path))

	got, err := LoadJSON(path)
	require.NoError(t, err)

	assert.Equal(t, res.RunID, got.RunID)
	assert.Equal(t, res.Metrics, got.Metrics)
	assert.Equal(t, len(res.Trades), len(got.Trades))
	assert.Equal(t, len(res.EquityCurve), len(got.EquityCurve))
	for i := range res.EquityCurve {
		assert.InDelta(t, res.EquityCurve[i].Equity, got.EquityCurve[i].Equity, 1e-9)
	}
}

func TestReplayPersistsConsecutiveRunsToOneJournal(t *testing.T) {
	t.Parallel()

	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	run := func() *Result {
		eng, err := NewEngine(Config{
			Strategy: &scripted{
				buys:  map[time.Time]string{replayDay(12): "AAA"},
				sells: map[time.Time]string{replayDay(16): "AAA"},
			},
			History:        flatHistory(t, "AAA", 20, 100),
			Start:          replayStart,
			End:            replayStart.AddDate(0, 0, 30),
			InitialCapital: 100000,
			Params:         replayParams(),
			Journal:        j,
		})
		require.NoError(t, err)
		res, err := eng.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	// Both runs restart their trade sequence at T-000001; the journal must
	// keep them apart by run ID.
	a, b := run(), run()

	trades, err := j.ListTradesByRun(a.RunID)
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	trades, err = j.ListTradesByRun(b.RunID)
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	curve, err := j.ListEquityByRun(b.RunID)
	require.NoError(t, err)
	assert.Len(t, curve, 20)
}

func TestReplayCancellation(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine(Config{
		Strategy:       signal.HoldSource{},
		History:        flatHistory(t, "AAA", 20, 100),
		Start:          replayStart,
		End:            replayStart.AddDate(0, 0, 30),
		InitialCapital: 100000,
		Params:         replayParams(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = eng.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunSweepIsolatesRuns(t *testing.T) {
	t.Parallel()

	mk := func() Config {
		return Config{
			Strategy:       &scripted{buys: map[time.Time]string{replayDay(12): "AAA"}},
			History:        flatHistory(t, "AAA", 20, 100),
			Start:          replayStart,
			End:            replayStart.AddDate(0, 0, 30),
			InitialCapital: 100000,
			Params:         replayParams(),
		}
	}

	results, err := RunSweep(context.Background(), []Config{mk(), mk()})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.NotEqual(t, results[0].RunID, results[1].RunID)
	assert.Equal(t, results[0].EquityCurve, results[1].EquityCurve)
	assert.Equal(t, results[0].Trades, results[1].Trades)
}

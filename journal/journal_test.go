package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrade(id, runID string, exit time.Time, pnl float64) TradeRecord {
	return TradeRecord{
		TradeID:    id,
		RunID:      runID,
		Symbol:     "AAPL",
		Side:       "SELL",
		Quantity:   100,
		EntryPrice: 100,
		ExitPrice:  100 + pnl/100,
		EntryTime:  exit.AddDate(0, 0, -3),
		ExitTime:   exit,
		PnL:        pnl,
		Reason:     "exit",
	}
}

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSQLiteTradeRoundTrip(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	exit := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordTrade(testTrade("T-000001", "run-a", exit, 250)))
	require.NoError(t, j.RecordTrade(testTrade("T-000002", "run-a", exit.AddDate(0, 0, 1), -80)))
	require.NoError(t, j.RecordTrade(testTrade("T-000003", "run-b", exit, 10)))

	trades, err := j.ListTradesByRun("run-a")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "T-000001", trades[0].TradeID)
	assert.Equal(t, 250.0, trades[0].PnL)
	assert.True(t, trades[0].ExitTime.Equal(exit))
	assert.Equal(t, "T-000002", trades[1].TradeID)
}

func TestSQLiteSameTradeIDAcrossRuns(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	exit := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	// Trade IDs are sequence-numbered per run and restart at T-000001, so
	// two runs landing in one journal collide unless uniqueness is scoped
	// by run.
	require.NoError(t, j.RecordTrade(testTrade("T-000001", "run-a", exit, 250)))
	require.NoError(t, j.RecordTrade(testTrade("T-000001", "run-b", exit, -40)))

	a, err := j.ListTradesByRun("run-a")
	require.NoError(t, err)
	b, err := j.ListTradesByRun("run-b")
	require.NoError(t, err)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, 250.0, a[0].PnL)
	assert.Equal(t, -40.0, b[0].PnL)
}

func TestSQLiteListTradesClosedBetween(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, j.RecordTrade(testTrade(
			"T-00000"+string(rune('1'+i)), "run-a", base.AddDate(0, 0, i), 10)))
	}

	// [day 1, day 3): two trades.
	got, err := j.ListTradesClosedBetween(base.AddDate(0, 0, 1), base.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLiteRunRoundTrip(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	rec := RunRecord{
		RunID:          "run-a",
		Strategy:       "momentum",
		Start:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		InitialCapital: 100000,
		FinalEquity:    112000,
		TotalReturn:    0.12,
		SharpeRatio:    1.4,
		MaxDrawdown:    0.06,
		Trades:         42,
	}
	require.NoError(t, j.RecordRun(rec))

	got, err := j.GetRun("run-a")
	require.NoError(t, err)
	assert.Equal(t, rec.Strategy, got.Strategy)
	assert.Equal(t, rec.TotalReturn, got.TotalReturn)
	assert.Equal(t, rec.Trades, got.Trades)
	assert.True(t, got.Start.Equal(rec.Start))

	_, err = j.GetRun("missing")
	assert.Error(t, err)
}

func TestSQLiteEquityByRun(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// Insert out of order; reads come back chronological.
	for _, i := range []int{2, 0, 1} {
		require.NoError(t, j.RecordEquity(EquitySnapshot{
			RunID:  "run-a",
			Time:   base.AddDate(0, 0, i),
			Cash:   100000,
			Equity: 100000 + float64(i)*500,
		}))
	}

	curve, err := j.ListEquityByRun("run-a")
	require.NoError(t, err)
	require.Len(t, curve, 3)
	assert.Equal(t, 100000.0, curve[0].Equity)
	assert.Equal(t, 101000.0, curve[2].Equity)
}

func TestNewCSVHeaderWriteFailure(t *testing.T) {
	t.Parallel()

	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("requires /dev/full")
	}

	// Header writes fail with ENOSPC; both files must be released and the
	// error reported.
	_, err := NewCSV("/dev/full", filepath.Join(t.TempDir(), "equity.csv"))
	assert.Error(t, err)
}

func TestCSVJournalWritesRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)

	exit := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(testTrade("T-000001", "run-a", exit, 250)))
	require.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "run-a", Time: exit, Cash: 1, Equity: 2, PeakEquity: 3}))
	require.NoError(t, j.Close())

	tf, err := os.Open(tradesPath)
	require.NoError(t, err)
	defer tf.Close()

	rows, err := csv.NewReader(tf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2) // header + one trade
	assert.Equal(t, "trade_id", rows[0][0])
	assert.Equal(t, "T-000001", rows[1][0])
	assert.Equal(t, "250", rows[1][9])
}

package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSV writes trades and equity snapshots to two flat files. Run summaries
// have no natural CSV home and are dropped; use SQLite when summaries
// matter.
type CSV struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	closeBoth := func() {
		tf.Close()
		ef.Close()
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	tw.Write([]string{"trade_id", "run_id", "symbol", "side", "quantity",
		"entry_price", "exit_price", "entry_time", "exit_time", "pnl", "reason"})
	ew.Write([]string{"run_id", "time", "cash", "equity", "peak_equity", "open_positions"})

	tw.Flush()
	ew.Flush()
	if err := tw.Error(); err != nil {
		closeBoth()
		return nil, err
	}
	if err := ew.Error(); err != nil {
		closeBoth()
		return nil, err
	}

	return &CSV{trades: tw, equity: ew, tf: tf, ef: ef}, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	j.trades.Write([]string{
		t.TradeID,
		t.RunID,
		t.Symbol,
		t.Side,
		f(t.Quantity),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.EntryTime.Format(time.RFC3339),
		t.ExitTime.Format(time.RFC3339),
		f(t.PnL),
		t.Reason,
	})
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	j.equity.Write([]string{
		e.RunID,
		e.Time.Format(time.RFC3339),
		f(e.Cash),
		f(e.Equity),
		f(e.PeakEquity),
		strconv.Itoa(e.OpenPositions),
	})
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSV) RecordRun(RunRecord) error { return nil }

func (j *CSV) Close() error {
	j.trades.Flush()
	j.equity.Flush()
	if err := j.tf.Close(); err != nil {
		j.ef.Close()
		return err
	}
	return j.ef.Close()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

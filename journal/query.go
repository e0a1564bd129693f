package journal

import (
	"database/sql"
	"fmt"
	"time"
)

// GetRun returns a single run summary by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	var rec RunRecord
	row := j.db.QueryRow(`
		SELECT run_id, strategy, start_time, end_time, initial_capital, final_equity, total_return, sharpe_ratio, max_drawdown, trades
		FROM runs WHERE run_id = ?`, runID)
	err := row.Scan(
		&rec.RunID, &rec.Strategy, &rec.Start, &rec.End,
		&rec.InitialCapital, &rec.FinalEquity, &rec.TotalReturn,
		&rec.SharpeRatio, &rec.MaxDrawdown, &rec.Trades,
	)
	if err == sql.ErrNoRows {
		return RunRecord{}, fmt.Errorf("run %q not found", runID)
	}
	return rec, err
}

// ListTradesByRun returns a run's trades ordered by exit time.
func (j *SQLite) ListTradesByRun(runID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, run_id, symbol, side, quantity, entry_price, exit_price, entry_time, exit_time, pnl, reason
		FROM trades WHERE run_id = ? ORDER BY exit_time ASC, trade_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

// ListTradesClosedBetween returns trades whose exit_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, run_id, symbol, side, quantity, entry_price, exit_price, entry_time, exit_time, pnl, reason
		FROM trades WHERE exit_time >= ? AND exit_time < ? ORDER BY exit_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

// ListEquityByRun returns a run's equity curve in chronological order.
func (j *SQLite) ListEquityByRun(runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, cash, equity, peak_equity, open_positions
		FROM equity WHERE run_id = ? ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var rec EquitySnapshot
		if err := rows.Scan(&rec.RunID, &rec.Time, &rec.Cash, &rec.Equity,
			&rec.PeakEquity, &rec.OpenPositions); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanTrades(rows *sql.Rows) ([]TradeRecord, error) {
	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID, &rec.RunID, &rec.Symbol, &rec.Side, &rec.Quantity,
			&rec.EntryPrice, &rec.ExitPrice, &rec.EntryTime, &rec.ExitTime,
			&rec.PnL, &rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/stat"

	"tradegate/journal"
)

// EquityPoint is one post-fill end-of-day snapshot on the equity curve.
type EquityPoint struct {
	Date          time.Time `json:"date"`
	Cash          float64   `json:"cash"`
	Equity        float64   `json:"equity"`
	PeakEquity    float64   `json:"peak_equity"`
	OpenPositions int       `json:"open_positions"`
}

// Metrics is the performance summary computed from the equity curve and
// the closed-trade log.
type Metrics struct {
	TotalReturn         float64 `json:"total_return"`
	AnnualizedReturn    float64 `json:"annualized_return"`
	Volatility          float64 `json:"volatility"`
	SharpeRatio         float64 `json:"sharpe_ratio"`
	SortinoRatio        float64 `json:"sortino_ratio"`
	MaxDrawdown         float64 `json:"max_drawdown"`
	MaxDrawdownDuration int     `json:"max_drawdown_duration"` // trading days
	WinRate             float64 `json:"win_rate"`
	ProfitFactor        float64 `json:"profit_factor"`
}

// Result is the full, exportable output of one replay run. RunID is
// identity, not content: two runs over identical inputs produce identical
// EquityCurve, Trades, and Metrics but distinct RunIDs.
type Result struct {
	RunID          string                `json:"run_id"`
	Strategy       string                `json:"strategy"`
	Start          time.Time             `json:"start"`
	End            time.Time             `json:"end"`
	InitialCapital float64               `json:"initial_capital"`
	FinalEquity    float64               `json:"final_equity"`
	EquityCurve    []EquityPoint         `json:"equity_curve"`
	Trades         []journal.TradeRecord `json:"trades"`
	Metrics        Metrics               `json:"metrics"`
}

// WriteJSON exports the result. A result written and re-read reproduces
// identical curve, trades, and metrics.
func (r *Result) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r *Result) SaveJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return fmt.Errorf("save result: %w", err)
	}
	return f.Close()
}

func LoadJSON(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load result: %w", err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	return &r, nil
}

const tradingDaysPerYear = 252

// computeMetrics derives the summary statistics from the equity curve and
// closed trades. Daily returns come from consecutive curve points.
func computeMetrics(curve []EquityPoint, trades []journal.TradeRecord, initialCapital float64) Metrics {
	var m Metrics
	if len(curve) == 0 || initialCapital <= 0 {
		return m
	}

	final := curve[len(curve)-1].Equity
	m.TotalReturn = (final - initialCapital) / initialCapital

	years := float64(len(curve)) / tradingDaysPerYear
	if years > 0 && final > 0 {
		m.AnnualizedReturn = math.Pow(final/initialCapital, 1/years) - 1
	}

	rets := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}
		rets = append(rets, (curve[i].Equity-prev)/prev)
	}

	if len(rets) > 1 {
		mean := stat.Mean(rets, nil)
		sd := stat.StdDev(rets, nil)
		m.Volatility = sd * math.Sqrt(tradingDaysPerYear)
		if sd > 0 {
			m.SharpeRatio = mean / sd * math.Sqrt(tradingDaysPerYear)
		}

		// Sortino penalizes downside deviation only.
		var downSq float64
		var nDown int
		for _, r := range rets {
			if r < 0 {
				downSq += r * r
				nDown++
			}
		}
		if nDown > 0 {
			dd := math.Sqrt(downSq / float64(len(rets)))
			if dd > 0 {
				m.SortinoRatio = mean / dd * math.Sqrt(tradingDaysPerYear)
			}
		}
	}

	m.MaxDrawdown, m.MaxDrawdownDuration = maxDrawdown(curve)

	var wins, closed int
	var grossProfit, grossLoss float64
	for _, t := range trades {
		if t.Side != "SELL" {
			continue
		}
		closed++
		if t.PnL > 0 {
			wins++
			grossProfit += t.PnL
		} else {
			grossLoss += -t.PnL
		}
	}
	if closed > 0 {
		m.WinRate = float64(wins) / float64(closed)
	}
	// ProfitFactor stays 0 when there are no losing trades; an infinity
	// here would not survive JSON export.
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	}

	return m
}

// maxDrawdown returns the deepest peak-to-trough decline and the longest
// stretch of trading days spent below a prior peak.
func maxDrawdown(curve []EquityPoint) (float64, int) {
	var worst float64
	var longest, current int
	peak := math.Inf(-1)

	for _, pt := range curve {
		if pt.Equity >= peak {
			peak = pt.Equity
			current = 0
			continue
		}
		current++
		if current > longest {
			longest = current
		}
		if peak > 0 {
			if dd := (peak - pt.Equity) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst, longest
}

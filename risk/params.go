package risk

import "fmt"

// Params is the full risk-parameter surface. A Params value is immutable
// once handed to the gate; live reconfiguration swaps the whole reference
// between trading cycles, never a field mid-decision.
type Params struct {
	MaxDailyTrades int `json:"max_daily_trades" yaml:"max_daily_trades"`
	MaxPositions   int `json:"max_positions" yaml:"max_positions"`

	DailyLossLimitPct float64 `json:"daily_loss_limit_pct" yaml:"daily_loss_limit_pct"`
	MaxDrawdownPct    float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`

	MaxPositionPct       float64 `json:"max_position_pct" yaml:"max_position_pct"`
	MaxSectorExposurePct float64 `json:"max_sector_exposure_pct" yaml:"max_sector_exposure_pct"`

	CorrelationThreshold     float64 `json:"correlation_threshold" yaml:"correlation_threshold"`
	CorrelationLookbackDays  int     `json:"correlation_lookback_days" yaml:"correlation_lookback_days"`
	MaxCorrelatedExposurePct float64 `json:"max_correlated_exposure_pct" yaml:"max_correlated_exposure_pct"`

	MinStrength   float64 `json:"min_strength" yaml:"min_strength"`
	MaxStrength   float64 `json:"max_strength" yaml:"max_strength"`
	MinTradeValue float64 `json:"min_trade_value" yaml:"min_trade_value"`

	SlippagePct float64 `json:"slippage_pct" yaml:"slippage_pct"`
	Commission  float64 `json:"commission" yaml:"commission"`

	// StrictDataPolicy makes missing sector or correlation data reject the
	// trade instead of skipping the check (fail-closed).
	StrictDataPolicy bool `json:"strict_data_policy" yaml:"strict_data_policy"`

	// StopLossPct, when > 0, attaches a protective stop this far below the
	// entry fill on every admitted BUY.
	StopLossPct float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
}

// DefaultParams mirror a conservative small-account setup.
func DefaultParams() Params {
	return Params{
		MaxDailyTrades:           5,
		MaxPositions:             10,
		DailyLossLimitPct:        0.05,
		MaxDrawdownPct:           0.15,
		MaxPositionPct:           0.20,
		MaxSectorExposurePct:     0.40,
		CorrelationThreshold:     0.80,
		CorrelationLookbackDays:  30,
		MaxCorrelatedExposurePct: 0.30,
		MinStrength:              0.30,
		MaxStrength:              0.90,
		MinTradeValue:            1000,
		SlippagePct:              0.001,
		Commission:               1.0,
		StopLossPct:              0.05,
	}
}

// Validate rejects parameter sets that would make the gate nonsensical.
func (p Params) Validate() error {
	if p.MaxDailyTrades <= 0 {
		return fmt.Errorf("max_daily_trades must be positive")
	}
	if p.MaxPositions <= 0 {
		return fmt.Errorf("max_positions must be positive")
	}
	if p.DailyLossLimitPct <= 0 || p.DailyLossLimitPct >= 1 {
		return fmt.Errorf("daily_loss_limit_pct must be in (0,1)")
	}
	if p.MaxDrawdownPct <= 0 || p.MaxDrawdownPct >= 1 {
		return fmt.Errorf("max_drawdown_pct must be in (0,1)")
	}
	if p.MaxPositionPct <= 0 || p.MaxPositionPct > 1 {
		return fmt.Errorf("max_position_pct must be in (0,1]")
	}
	if p.MaxSectorExposurePct <= 0 || p.MaxSectorExposurePct > 1 {
		return fmt.Errorf("max_sector_exposure_pct must be in (0,1]")
	}
	if p.CorrelationThreshold <= 0 || p.CorrelationThreshold > 1 {
		return fmt.Errorf("correlation_threshold must be in (0,1]")
	}
	if p.CorrelationLookbackDays < 2 {
		return fmt.Errorf("correlation_lookback_days must be at least 2")
	}
	if p.MaxCorrelatedExposurePct <= 0 || p.MaxCorrelatedExposurePct > 1 {
		return fmt.Errorf("max_correlated_exposure_pct must be in (0,1]")
	}
	if p.MinStrength < 0 || p.MaxStrength > 1 || p.MinStrength >= p.MaxStrength {
		return fmt.Errorf("require 0 <= min_strength < max_strength <= 1")
	}
	if p.MinTradeValue < 0 {
		return fmt.Errorf("min_trade_value must be non-negative")
	}
	if p.SlippagePct < 0 || p.SlippagePct >= 1 {
		return fmt.Errorf("slippage_pct must be in [0,1)")
	}
	if p.Commission < 0 {
		return fmt.Errorf("commission must be non-negative")
	}
	if p.StopLossPct < 0 || p.StopLossPct >= 1 {
		return fmt.Errorf("stop_loss_pct must be in [0,1)")
	}
	return nil
}

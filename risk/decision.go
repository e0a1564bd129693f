package risk

import "tradegate/signal"

// RejectReason identifies which check blocked an admission. Rejections are
// expected outcomes, carried on the Decision, never returned as errors.
type RejectReason string

const (
	ReasonNone                        RejectReason = ""
	ReasonDailyLimitReached           RejectReason = "DailyLimitReached"
	ReasonCircuitBreakerTripped       RejectReason = "CircuitBreakerTripped"
	ReasonMaxPositionsReached         RejectReason = "MaxPositionsReached"
	ReasonSectorExposureExceeded      RejectReason = "SectorExposureExceeded"
	ReasonCorrelationExposureExceeded RejectReason = "CorrelationExposureExceeded"
	ReasonBelowMinimumTradeValue      RejectReason = "BelowMinimumTradeValue"
	ReasonInsufficientBuyingPower     RejectReason = "InsufficientBuyingPower"
	ReasonNothingToDo                 RejectReason = "NothingToDo" // HOLD, or SELL with no position
)

// Decision is the gate's answer for one signal. Produced once, never
// mutated. TradeValue is set only when Admitted.
type Decision struct {
	Signal     signal.Signal `json:"signal"`
	Admitted   bool          `json:"admitted"`
	TradeValue float64       `json:"trade_value,omitempty"`
	Reason     RejectReason  `json:"rejection_reason,omitempty"`
}

func admitted(sig signal.Signal, value float64) Decision {
	return Decision{Signal: sig, Admitted: true, TradeValue: value}
}

func rejected(sig signal.Signal, reason RejectReason) Decision {
	return Decision{Signal: sig, Reason: reason}
}

package risk

import "github.com/prometheus/client_golang/prometheus"

var (
	metricSignalsEvaluated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_signals_evaluated_total",
		Help: "Signals routed through the risk gate",
	})
	metricAdmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_admitted_total",
		Help: "Signals admitted for execution",
	})
	metricRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_rejected_total",
		Help: "Signals rejected, labeled by the first failing check",
	}, []string{"reason"})
	metricDegradedChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_degraded_checks_total",
		Help: "Checks skipped because required data was missing",
	}, []string{"check"})
	metricBreakerTripped = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gate_breaker_tripped",
		Help: "1 while the circuit breaker is tripped, else 0",
	})
)

func init() {
	prometheus.MustRegister(
		metricSignalsEvaluated, metricAdmitted, metricRejected,
		metricDegradedChecks, metricBreakerTripped,
	)
}

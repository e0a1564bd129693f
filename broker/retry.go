package broker

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	metricOrderAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_order_attempts_total",
		Help: "Order submissions attempted, including retries",
	})
	metricOrderFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_order_failures_total",
		Help: "Orders that failed after exhausting retries",
	})
)

func init() {
	prometheus.MustRegister(metricOrderAttempts, metricOrderFailures)
}

// Retry wraps a Broker with per-call timeouts and exponential backoff with
// jitter. A failed order is reported to the caller and never reaches the
// portfolio books; the control loop carries on to the next cycle.
type Retry struct {
	inner       Broker
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	jitter      float64
	callTimeout time.Duration
	log         *zap.Logger
}

func NewRetry(inner Broker, log *zap.Logger) *Retry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retry{
		inner:       inner,
		maxAttempts: 3,
		baseDelay:   time.Second,
		maxDelay:    30 * time.Second,
		jitter:      0.2,
		callTimeout: 10 * time.Second,
		log:         log,
	}
}

func (r *Retry) GetAccount(ctx context.Context) (Account, error) {
	var acct Account
	err := r.do(ctx, "get account", func(callCtx context.Context) error {
		var err error
		acct, err = r.inner.GetAccount(callCtx)
		return err
	})
	return acct, err
}

func (r *Retry) SubmitOrder(ctx context.Context, req OrderRequest) (Fill, error) {
	var fill Fill
	err := r.do(ctx, "submit order", func(callCtx context.Context) error {
		metricOrderAttempts.Inc()
		var err error
		fill, err = r.inner.SubmitOrder(callCtx, req)
		return err
	})
	if err != nil {
		metricOrderFailures.Inc()
	}
	return fill, err
}

func (r *Retry) do(ctx context.Context, op string, call func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.delay(attempt)):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		err := call(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		r.log.Warn("broker call failed",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return fmt.Errorf("%s: retries exhausted: %w", op, lastErr)
}

// delay computes base*2^(attempt-1) capped at maxDelay, with +/-jitter.
func (r *Retry) delay(attempt int) time.Duration {
	d := r.baseDelay << (attempt - 1)
	if d > r.maxDelay {
		d = r.maxDelay
	}
	if r.jitter > 0 {
		spread := 1 - r.jitter + 2*r.jitter*rand.Float64()
		d = time.Duration(float64(d) * spread)
	}
	return d
}

// Package broker defines the brokerage collaborator the live loop hands
// admitted decisions to. The real connection is out of scope; Paper stands
// in for it, and Retry wraps any implementation with timeout and backoff.
package broker

import (
	"context"
	"time"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Account mirrors the brokerage's view of cash and equity.
type Account struct {
	Cash        float64
	BuyingPower float64
	Equity      float64
}

// OrderRequest submits a market order by notional value.
type OrderRequest struct {
	Symbol string
	Side   Side
	Value  float64
}

// Fill is the brokerage's execution report.
type Fill struct {
	Symbol   string
	Side     Side
	Quantity float64
	Price    float64
	Time     time.Time
}

type Broker interface {
	GetAccount(ctx context.Context) (Account, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (Fill, error)
}

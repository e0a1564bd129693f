package live

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"tradegate/broker"
	"tradegate/market"
	"tradegate/portfolio"
	"tradegate/risk"
	"tradegate/signal"
)

// Topics published on the bus.
const (
	TopicQuotes    = "quotes"
	TopicDecisions = "decisions"
	TopicFills     = "fills"
	TopicErrors    = "errors"
)

// Options wire a Controller.
type Options struct {
	Broker          broker.Broker
	Strategy        signal.Source
	History         *market.History
	Sectors         market.SectorMap
	Symbols         []string
	Params          risk.Params
	InitialCapital  float64
	CycleInterval   time.Duration
	RefreshInterval time.Duration
	LookbackDays    int
	Log             *zap.Logger
}

// Controller drives live trading: on every cycle it analyzes each symbol,
// routes the signal through the same gate replay uses, and forwards
// admitted decisions to the brokerage collaborator. Cancellation is
// checked between cycles, never mid-decision, so an in-flight admission
// always completes with a well-defined Decision.
type Controller struct {
	opts  Options
	bus   *Bus
	gate  *risk.Gate
	state *portfolio.State
	log   *zap.Logger

	qmu    sync.Mutex
	quotes map[string]float64
}

func NewController(opts Options, bus *Bus) (*Controller, error) {
	if opts.Broker == nil {
		return nil, errors.New("live: Broker is required")
	}
	if opts.Strategy == nil {
		return nil, errors.New("live: Strategy is required")
	}
	if opts.History == nil {
		opts.History = market.NewHistory()
	}
	if opts.Sectors == nil {
		opts.Sectors = market.StaticSectorMap{}
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.CycleInterval <= 0 {
		opts.CycleInterval = time.Minute
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 30 * time.Second
	}
	if opts.LookbackDays < opts.Params.CorrelationLookbackDays {
		opts.LookbackDays = opts.Params.CorrelationLookbackDays
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if bus == nil {
		bus = NewBus()
	}

	return &Controller{
		opts:   opts,
		bus:    bus,
		gate:   risk.NewGate(opts.Params, opts.Sectors, opts.History, opts.Log),
		state:  portfolio.NewState(opts.InitialCapital),
		log:    opts.Log,
		quotes: make(map[string]float64),
	}, nil
}

func (c *Controller) Bus() *Bus               { return c.bus }
func (c *Controller) Gate() *risk.Gate        { return c.gate }
func (c *Controller) State() *portfolio.State { return c.state }

// Reconfigure swaps the active risk parameters. The swap lands between
// cycles; a decision in flight keeps the params it started with.
func (c *Controller) Reconfigure(p risk.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.gate.SetParams(p)
	c.log.Info("risk parameters reloaded")
	return nil
}

// Run drives the refresh and trading tickers until the context is
// cancelled. A failed refresh or order is reported and the loop continues;
// only an invariant violation aborts.
func (c *Controller) Run(ctx context.Context) error {
	refresh := time.NewTicker(c.opts.RefreshInterval)
	defer refresh.Stop()
	cycle := time.NewTicker(c.opts.CycleInterval)
	defer cycle.Stop()

	if err := c.refreshAccount(ctx); err != nil {
		c.report("initial account refresh", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-refresh.C:
			if err := c.refreshAccount(ctx); err != nil {
				c.report("account refresh", err)
			}

		case <-cycle.C:
			if err := c.tradeCycle(ctx); err != nil {
				var inv *portfolio.InvariantError
				if errors.As(err, &inv) {
					c.log.Error("portfolio invariant violated, stopping", zap.Error(err))
					return err
				}
				c.report("trade cycle", err)
			}
		}
	}
}

func (c *Controller) refreshAccount(ctx context.Context) error {
	acct, err := c.opts.Broker.GetAccount(ctx)
	if err != nil {
		return err
	}
	c.state.Cash = acct.Cash
	c.state.BuyingPower = acct.BuyingPower
	if c.state.BuyingPower > c.state.Cash {
		c.state.BuyingPower = c.state.Cash
	}
	c.state.Revalue()
	c.bus.Publish(TopicQuotes, acct)
	return nil
}

// tradeCycle evaluates one signal per symbol under the gate's mutex and
// forwards admissions to the broker. The whole cycle runs to completion
// once started.
func (c *Controller) tradeCycle(ctx context.Context) error {
	now := time.Now().UTC()
	for _, symb := range c.opts.Symbols {
		bars := c.opts.History.BarsUpTo(symb, now, c.opts.LookbackDays)
		price := c.quote(symb, bars)
		if price <= 0 {
			continue
		}
		c.state.MarkPrice(symb, price)
		c.state.Revalue()

		sig := c.opts.Strategy.Analyze(symb, bars, price, c.state.Positions[symb])
		sig.Time = now

		dec := c.gate.Evaluate(sig, c.state)
		c.bus.Publish(TopicDecisions, dec)
		if !dec.Admitted {
			continue
		}

		if err := c.execute(ctx, dec); err != nil {
			var inv *portfolio.InvariantError
			if errors.As(err, &inv) {
				return err
			}
			// A failed order never touches the books.
			c.report("execute "+symb, err)
		}
	}
	if err := c.state.CheckInvariants(); err != nil {
		return err
	}
	return nil
}

func (c *Controller) execute(ctx context.Context, dec risk.Decision) error {
	side := broker.Buy
	if dec.Signal.Action == signal.Sell {
		side = broker.Sell
	}

	fill, err := c.opts.Broker.SubmitOrder(ctx, broker.OrderRequest{
		Symbol: dec.Signal.Symbol,
		Side:   side,
		Value:  dec.TradeValue,
	})
	if err != nil {
		return err
	}

	p := c.gate.Params()
	switch side {
	case broker.Buy:
		sector := c.gate.SectorFor(dec.Signal.Symbol)
		if err := c.state.ApplyBuy(dec.Signal.Symbol, sector, fill.Quantity, fill.Price, p.Commission, fill.Time); err != nil {
			return err
		}
	case broker.Sell:
		if _, err := c.state.ApplySell(dec.Signal.Symbol, fill.Price, p.Commission); err != nil {
			return err
		}
	}
	c.bus.Publish(TopicFills, fill)
	return c.state.CheckInvariants()
}

// quote falls back to the latest bar close when no fresher price exists.
func (c *Controller) quote(symbol string, bars []market.Bar) float64 {
	c.qmu.Lock()
	px, ok := c.quotes[symbol]
	c.qmu.Unlock()
	if ok && px > 0 {
		return px
	}
	if len(bars) > 0 {
		return bars[len(bars)-1].Close
	}
	return 0
}

// SetQuote feeds a fresh price into the next cycle, typically from a
// market-data job.
func (c *Controller) SetQuote(symbol string, price float64) {
	c.qmu.Lock()
	c.quotes[symbol] = price
	c.qmu.Unlock()
}

func (c *Controller) report(op string, err error) {
	c.log.Warn(op+" failed", zap.Error(err))
	c.bus.Publish(TopicErrors, err)
}

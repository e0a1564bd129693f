package broker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Paper is an in-memory brokerage for live-mode dry runs. Orders fill
// instantly at the last quoted price plus slippage, and the ledger moves
// by exactly what the reported fill costs: shares at the slipped price
// plus commission. That keeps the paper account in step with a portfolio
// that books the same fills.
type Paper struct {
	mu         sync.Mutex
	acct       Account
	quotes     map[string]float64
	slippage   float64
	commission float64
	now        func() time.Time
}

func NewPaper(initialCash, slippagePct, commission float64) *Paper {
	return &Paper{
		acct: Account{
			Cash:        initialCash,
			BuyingPower: initialCash,
			Equity:      initialCash,
		},
		quotes:     make(map[string]float64),
		slippage:   slippagePct,
		commission: commission,
		now:        time.Now,
	}
}

// SetQuote updates the last price for a symbol.
func (p *Paper) SetQuote(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[symbol] = price
}

func (p *Paper) GetAccount(ctx context.Context) (Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acct, nil
}

func (p *Paper) SubmitOrder(ctx context.Context, req OrderRequest) (Fill, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	quote, ok := p.quotes[req.Symbol]
	if !ok || quote <= 0 {
		return Fill{}, fmt.Errorf("paper: no quote for %q", req.Symbol)
	}

	var price, qty float64
	switch req.Side {
	case Buy:
		// The order value buys shares at the slipped price; commission is
		// charged on top.
		price = quote * (1 + p.slippage)
		qty = req.Value / price
		cost := qty*price + p.commission
		if cost > p.acct.BuyingPower {
			return Fill{}, fmt.Errorf("paper: order cost %.2f exceeds buying power %.2f",
				cost, p.acct.BuyingPower)
		}
		p.acct.Cash -= cost
		p.acct.BuyingPower -= cost
	case Sell:
		// The order value is the position's marked notional; the fill
		// realizes it at the slipped price, net of commission.
		price = quote * (1 - p.slippage)
		qty = req.Value / quote
		p.acct.Cash += qty*price - p.commission
		p.acct.BuyingPower += qty*price - p.commission
	default:
		return Fill{}, fmt.Errorf("paper: unknown side %q", req.Side)
	}

	return Fill{
		Symbol:   req.Symbol,
		Side:     req.Side,
		Quantity: qty,
		Price:    price,
		Time:     p.now(),
	}, nil
}

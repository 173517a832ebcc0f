// Package sim implements the simulated execution venue: the single
// authority over positions, pending orders, balance, and the trade
// ledger during a backtest.
package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quantlab/fxbacktest/broker"
	"github.com/quantlab/fxbacktest/journal"
	"github.com/quantlab/fxbacktest/market"
)

// Config sets the venue's execution model.
type Config struct {
	// Spread is ask minus bid in price units; fills move half of it
	// against the trader on open and again on close.
	Spread float64

	// CommissionPerLot is deducted from balance when an order fills.
	CommissionPerLot float64

	// MinimumLot rejects smaller volumes. Zero selects the standard
	// 0.01 minimum.
	MinimumLot float64

	// ContractSize is base-currency units per lot. Zero selects the
	// standard 100,000.
	ContractSize float64

	Currency string

	// RunID tags journal records; empty is fine for throwaway runs.
	RunID string
}

// Venue is the simulated broker. All mutation goes through the order
// API; getters return copies.
type Venue struct {
	mu  sync.Mutex
	cfg Config

	balance float64
	equity  float64

	positions map[int64]*broker.Position
	pending   map[int64]*broker.PendingOrder
	history   []broker.ClosedTrade

	nextTicket int64
	clock      time.Time // latest tick time seen

	journal journal.Journal
}

// NewVenue creates a venue with the given starting balance. A nil
// journal records to memory.
func NewVenue(initialCapital float64, cfg Config, j journal.Journal) *Venue {
	if cfg.MinimumLot <= 0 {
		cfg.MinimumLot = market.StandardMinimumLot
	}
	if cfg.ContractSize <= 0 {
		cfg.ContractSize = market.StandardContractSize
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if j == nil {
		j = journal.NewMemory()
	}
	return &Venue{
		cfg:        cfg,
		balance:    initialCapital,
		equity:     initialCapital,
		positions:  make(map[int64]*broker.Position),
		pending:    make(map[int64]*broker.PendingOrder),
		nextTicket: 1000,
		journal:    j,
	}
}

// PlaceOrder executes market orders immediately at the requested price
// adjusted by half the spread, and queues limit/stop orders until their
// trigger price prints.
func (v *Venue) PlaceOrder(ctx context.Context, o broker.Order) broker.OrderResult {
	_ = ctx

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := o.Validate(v.cfg.MinimumLot); err != nil {
		return broker.OrderResult{Success: false, Message: err.Error(), Time: v.now()}
	}

	if o.Kind != broker.KindMarket {
		ticket := v.issueTicket()
		v.pending[ticket] = &broker.PendingOrder{
			Ticket:   ticket,
			Order:    o,
			PlacedAt: v.now(),
		}
		return broker.OrderResult{
			Success: true,
			Ticket:  ticket,
			Price:   o.Price,
			Volume:  o.Volume,
			Pending: true,
			Message: "order queued",
			Time:    v.now(),
		}
	}

	price := o.Price
	if price == 0 {
		last, ok := v.lastMark(o.Symbol)
		if !ok {
			return broker.OrderResult{Success: false, Message: "no price for " + o.Symbol, Time: v.now()}
		}
		price = last
	}

	return v.fillLocked(o, price)
}

// fillLocked opens a position at price adjusted by half the spread and
// deducts the commission from balance.
func (v *Venue) fillLocked(o broker.Order, price float64) broker.OrderResult {
	fill := price + float64(o.Side)*v.cfg.Spread/2
	commission := o.Volume * v.cfg.CommissionPerLot
	ticket := v.issueTicket()

	v.positions[ticket] = &broker.Position{
		Ticket:       ticket,
		Symbol:       o.Symbol,
		Side:         o.Side,
		Volume:       o.Volume,
		OpenPrice:    fill,
		CurrentPrice: fill,
		StopLoss:     o.StopLoss,
		TakeProfit:   o.TakeProfit,
		Commission:   commission,
		UnrealizedPL: -commission,
		OpenTime:     v.now(),
		Comment:      o.Comment,
		Magic:        o.Magic,
	}

	v.balance -= commission
	v.revalueLocked()

	return broker.OrderResult{
		Success: true,
		Ticket:  ticket,
		Price:   fill,
		Volume:  o.Volume,
		Message: "filled",
		Time:    v.now(),
	}
}

// ModifyOrder overrides stop-loss/take-profit/comment on an open
// position or a pending order.
func (v *Venue) ModifyOrder(ticket int64, ch broker.Changes) broker.OrderResult {
	v.mu.Lock()
	defer v.mu.Unlock()

	if p, ok := v.positions[ticket]; ok {
		applyChanges(&p.StopLoss, &p.TakeProfit, &p.Comment, ch)
		return broker.OrderResult{Success: true, Ticket: ticket, Message: "position modified", Time: v.now()}
	}
	if p, ok := v.pending[ticket]; ok {
		applyChanges(&p.StopLoss, &p.TakeProfit, &p.Comment, ch)
		return broker.OrderResult{Success: true, Ticket: ticket, Message: "pending order modified", Time: v.now()}
	}
	return broker.OrderResult{
		Success: false,
		Ticket:  ticket,
		Message: fmt.Sprintf("%v: %d", broker.ErrNotFound, ticket),
		Time:    v.now(),
	}
}

func applyChanges(sl, tp **float64, comment *string, ch broker.Changes) {
	if ch.StopLoss != nil {
		*sl = ch.StopLoss
	}
	if ch.TakeProfit != nil {
		*tp = ch.TakeProfit
	}
	if ch.Comment != nil {
		*comment = *ch.Comment
	}
}

// CloseOrder realizes P&L for volume lots (0 means the full position)
// at the current mark moved half a spread against the trader. Closing
// a pending order's ticket cancels it.
func (v *Venue) CloseOrder(ctx context.Context, ticket int64, volume float64, reason string) broker.OrderResult {
	_ = ctx

	v.mu.Lock()
	defer v.mu.Unlock()

	if p, ok := v.positions[ticket]; ok {
		return v.closeLocked(p, volume, reason)
	}
	if _, ok := v.pending[ticket]; ok {
		delete(v.pending, ticket)
		return broker.OrderResult{Success: true, Ticket: ticket, Message: "pending order cancelled", Time: v.now()}
	}
	return broker.OrderResult{
		Success: false,
		Ticket:  ticket,
		Message: fmt.Sprintf("%v: %d", broker.ErrNotFound, ticket),
		Time:    v.now(),
	}
}

func (v *Venue) closeLocked(p *broker.Position, volume float64, reason string) broker.OrderResult {
	if reason == "" {
		reason = "ManualClose"
	}

	closeVol := p.Volume
	partial := volume > 0 && volume < p.Volume
	if partial {
		closeVol = volume
	}

	closePrice := p.CurrentPrice - float64(p.Side)*v.cfg.Spread/2
	gross := float64(p.Side) * (closePrice - p.OpenPrice) * closeVol * v.cfg.ContractSize
	commission := p.Commission * closeVol / p.Volume
	net := gross - commission

	v.balance += net

	closed := broker.ClosedTrade{
		Position:   *p,
		ClosePrice: closePrice,
		RealizedPL: net,
		CloseTime:  v.now(),
		Reason:     reason,
	}
	closed.Position.Volume = closeVol
	closed.Position.Commission = commission
	v.history = append(v.history, closed)

	if partial {
		p.Volume -= closeVol
		p.Commission -= commission
		p.UnrealizedPL = float64(p.Side)*(p.CurrentPrice-p.OpenPrice)*p.Volume*v.cfg.ContractSize - p.Commission
	} else {
		delete(v.positions, p.Ticket)
	}

	v.revalueLocked()

	_ = v.journal.RecordTrade(journal.TradeRecord{
		RunID:      v.cfg.RunID,
		Ticket:     p.Ticket,
		Symbol:     p.Symbol,
		Side:       p.Side.String(),
		Volume:     closeVol,
		OpenPrice:  p.OpenPrice,
		ClosePrice: closePrice,
		OpenTime:   p.OpenTime,
		CloseTime:  closed.CloseTime,
		Commission: commission,
		RealizedPL: net,
		Reason:     reason,
	})
	_ = v.journal.RecordEquity(journal.EquitySnapshot{
		RunID:   v.cfg.RunID,
		Time:    closed.CloseTime,
		Balance: v.balance,
		Equity:  v.equity,
	})

	return broker.OrderResult{
		Success: true,
		Ticket:  p.Ticket,
		Price:   closePrice,
		Volume:  closeVol,
		Message: fmt.Sprintf("closed: %s, P&L %.2f", reason, net),
		Time:    closed.CloseTime,
	}
}

// CloseAll closes every open position at its last known mark. Used at
// backtest finalization.
func (v *Venue) CloseAll(ctx context.Context, reason string) error {
	_ = ctx
	if reason == "" {
		reason = "EndOfBacktest"
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	tickets := make([]int64, 0, len(v.positions))
	for t := range v.positions {
		tickets = append(tickets, t)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i] < tickets[j] })

	for _, t := range tickets {
		res := v.closeLocked(v.positions[t], 0, reason)
		if !res.Success {
			return fmt.Errorf("close all: ticket %d: %s", t, res.Message)
		}
	}
	return nil
}

// MarkToMarket re-prices every open position on the tick's symbol,
// refreshes equity, and fills any pending order whose trigger printed.
func (v *Venue) MarkToMarket(t market.Tick) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if t.Time.After(v.clock) {
		v.clock = t.Time
	}

	for _, p := range v.positions {
		if p.Symbol != t.Symbol {
			continue
		}
		p.CurrentPrice = t.Last
		gross := float64(p.Side) * (p.CurrentPrice - p.OpenPrice) * p.Volume * v.cfg.ContractSize
		p.UnrealizedPL = gross - p.Commission
	}
	v.revalueLocked()

	v.triggerPendingLocked(t)
}

// triggerPendingLocked converts pending orders whose trigger price has
// printed into open positions at the trigger price.
func (v *Venue) triggerPendingLocked(t market.Tick) {
	var due []int64
	for ticket, p := range v.pending {
		if p.Symbol != t.Symbol {
			continue
		}
		if pendingTriggered(p.Order, t.Last) {
			due = append(due, ticket)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i] < due[j] })

	for _, ticket := range due {
		p := v.pending[ticket]
		delete(v.pending, ticket)
		v.fillLocked(p.Order, p.Price)
	}
}

func pendingTriggered(o broker.Order, price float64) bool {
	switch {
	case o.Kind == broker.KindLimit && o.Side == broker.Buy:
		return price <= o.Price
	case o.Kind == broker.KindLimit && o.Side == broker.Sell:
		return price >= o.Price
	case o.Kind == broker.KindStop && o.Side == broker.Buy:
		return price >= o.Price
	case o.Kind == broker.KindStop && o.Side == broker.Sell:
		return price <= o.Price
	}
	return false
}

func (v *Venue) revalueLocked() {
	equity := v.balance
	for _, p := range v.positions {
		equity += p.UnrealizedPL
	}
	v.equity = equity
}

// OpenPositions returns copies of the open positions, ordered by
// ticket. Pure query: no re-pricing happens here.
func (v *Venue) OpenPositions() []broker.Position {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]broker.Position, 0, len(v.positions))
	for _, p := range v.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out
}

// PendingOrders returns copies of the queued orders, ordered by ticket.
func (v *Venue) PendingOrders() []broker.PendingOrder {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]broker.PendingOrder, 0, len(v.pending))
	for _, p := range v.pending {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out
}

// Account returns the balance/equity snapshot. Idempotent between
// ticks.
func (v *Venue) Account() broker.AccountState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return broker.AccountState{
		Currency: v.cfg.Currency,
		Balance:  v.balance,
		Equity:   v.equity,
	}
}

// History returns the closed-trade ledger in close order.
func (v *Venue) History() []broker.ClosedTrade {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]broker.ClosedTrade, len(v.history))
	copy(out, v.history)
	return out
}

func (v *Venue) issueTicket() int64 {
	t := v.nextTicket
	v.nextTicket++
	return t
}

func (v *Venue) lastMark(symbol string) (float64, bool) {
	for _, p := range v.positions {
		if p.Symbol == symbol {
			return p.CurrentPrice, true
		}
	}
	return 0, false
}

func (v *Venue) now() time.Time {
	if v.clock.IsZero() {
		return time.Now().UTC()
	}
	return v.clock
}

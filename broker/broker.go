// Package broker defines the order, position, and account records the
// backtest driver exchanges with an execution venue, and the Venue
// interface the simulation implements.
package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantlab/fxbacktest/market"
)

// Side is the trade direction: +1 buy, -1 sell.
type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return "UNKNOWN"
}

// OrderKind selects immediate or pending execution.
type OrderKind string

const (
	KindMarket OrderKind = "market"
	KindLimit  OrderKind = "limit"
	KindStop   OrderKind = "stop"
)

// Order is a validated trade request. Volume is in lots.
type Order struct {
	Symbol string
	Side   Side
	Volume float64
	Kind   OrderKind

	// Price is the requested fill price for market orders and the
	// trigger price for limit/stop orders.
	Price float64

	StopLoss   *float64
	TakeProfit *float64

	Comment string
	Magic   int
}

// Validate rejects malformed orders at construction time instead of at
// point of use.
func (o Order) Validate(minimumLot float64) error {
	if o.Symbol == "" {
		return &ValidationError{Reason: "order symbol is empty"}
	}
	if o.Side != Buy && o.Side != Sell {
		return &ValidationError{Reason: "order side must be BUY or SELL"}
	}
	if o.Volume < minimumLot {
		return &ValidationError{Reason: fmt.Sprintf("volume %.3f below minimum lot %.2f", o.Volume, minimumLot)}
	}
	switch o.Kind {
	case KindMarket, KindLimit, KindStop:
	case "":
		return &ValidationError{Reason: "order kind is empty"}
	default:
		return &ValidationError{Reason: "unknown order kind " + string(o.Kind)}
	}
	return nil
}

// OrderResult reports the outcome of a venue call. Failed calls carry a
// reason in Message; the driver treats them as rejected signals, not
// fatal errors.
type OrderResult struct {
	Success bool
	Ticket  int64
	Price   float64
	Volume  float64
	Pending bool
	Message string
	Time    time.Time
}

// Changes carries field overrides for ModifyOrder; nil means keep.
type Changes struct {
	StopLoss   *float64
	TakeProfit *float64
	Comment    *string
}

// Position is an open trade, owned exclusively by the venue.
type Position struct {
	Ticket int64
	Symbol string
	Side   Side
	Volume float64

	OpenPrice    float64
	CurrentPrice float64

	StopLoss   *float64
	TakeProfit *float64

	Commission   float64
	Swap         float64
	UnrealizedPL float64

	OpenTime time.Time
	Comment  string
	Magic    int
}

// ClosedTrade is the immutable ledger entry a position becomes when it
// closes.
type ClosedTrade struct {
	Position

	ClosePrice float64
	RealizedPL float64
	CloseTime  time.Time
	Reason     string
}

// PendingOrder is a queued limit/stop order awaiting its trigger price.
type PendingOrder struct {
	Ticket int64
	Order
	PlacedAt time.Time
}

// AccountState is a point-in-time snapshot of the virtual account.
// Equity equals balance plus the sum of open unrealized P&L; margin is
// carried for interface parity and stays zero in simulation.
type AccountState struct {
	Currency string
	Balance  float64
	Equity   float64
	Margin   float64
}

// Venue is the single authority over positions, pending orders, and the
// account during a run. Getters are pure snapshots; price marking is
// the explicit MarkToMarket command.
type Venue interface {
	PlaceOrder(ctx context.Context, o Order) OrderResult
	ModifyOrder(ticket int64, ch Changes) OrderResult
	// CloseOrder closes volume lots of the position (0 closes all) at
	// the current mark adjusted by half the spread.
	CloseOrder(ctx context.Context, ticket int64, volume float64, reason string) OrderResult
	CloseAll(ctx context.Context, reason string) error

	MarkToMarket(t market.Tick)

	OpenPositions() []Position
	PendingOrders() []PendingOrder
	Account() AccountState
	History() []ClosedTrade
}

// ErrNotFound is reported when a ticket matches neither an open
// position nor a pending order.
var ErrNotFound = errors.New("ticket not found")

// ValidationError marks a rejected order request. Non-fatal: the run
// continues, the order does not.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "order validation: " + e.Reason
}

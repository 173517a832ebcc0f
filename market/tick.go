package market

import "time"

// Tick is a single bid/ask quote. In backtests ticks are synthetic,
// derived from candles; the venue and driver treat them the same way a
// live feed would be treated.
type Tick struct {
	Symbol string
	Time   time.Time

	Bid  float64
	Ask  float64
	Last float64 // mid, the mark price for open positions

	Volume int
}

// Mid returns the bid/ask midpoint.
func (t Tick) Mid() float64 {
	if t.Bid == 0 && t.Ask == 0 {
		return 0
	}
	return (t.Bid + t.Ask) / 2
}

// Spread returns ask minus bid.
func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

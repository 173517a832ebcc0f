// Package market holds the price-data value types shared by the
// synthesizer, the simulated venue, and the backtest driver.
package market

import (
	"fmt"
	"time"
)

// Timeframe is a candle resolution label as used by data suppliers.
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	M30 Timeframe = "M30"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
)

var timeframeDurations = map[Timeframe]time.Duration{
	M1:  time.Minute,
	M5:  5 * time.Minute,
	M15: 15 * time.Minute,
	M30: 30 * time.Minute,
	H1:  time.Hour,
	H4:  4 * time.Hour,
	D1:  24 * time.Hour,
}

// Duration returns the wall-clock span of one candle, or 0 for an
// unknown label.
func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}

// Valid reports whether tf is one of the supported labels.
func (tf Timeframe) Valid() bool {
	_, ok := timeframeDurations[tf]
	return ok
}

// Candle is one unit of historical price action. Immutable once loaded.
type Candle struct {
	Symbol    string
	Timeframe Timeframe
	Time      time.Time // candle open time

	Open  float64
	High  float64
	Low   float64
	Close float64

	Volume float64
}

// Range is the candle's high-low span.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Validate checks the OHLC invariant: high covers both open and close,
// low sits under both.
func (c Candle) Validate() error {
	if c.Time.IsZero() {
		return &DataError{Reason: "candle has zero timestamp"}
	}
	if c.High < c.Open || c.High < c.Close {
		return &DataError{Reason: fmt.Sprintf("high %.5f below open/close at %s", c.High, c.Time.Format(time.RFC3339))}
	}
	if c.Low > c.Open || c.Low > c.Close {
		return &DataError{Reason: fmt.Sprintf("low %.5f above open/close at %s", c.Low, c.Time.Format(time.RFC3339))}
	}
	return nil
}

// ValidateSeries checks that candles are sorted ascending by open time
// with no duplicates and that every candle holds the OHLC invariant.
func ValidateSeries(candles []Candle) error {
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return err
		}
		if i == 0 {
			continue
		}
		if !candles[i-1].Time.Before(c.Time) {
			return &DataError{Reason: fmt.Sprintf("series not strictly ascending at index %d (%s)", i, c.Time.Format(time.RFC3339))}
		}
	}
	return nil
}

// FilterRange returns the candles whose open time falls in [start, end],
// both ends inclusive. A zero start or end leaves that side unbounded.
// The input must be sorted ascending.
func FilterRange(candles []Candle, start, end time.Time) []Candle {
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if !start.IsZero() && c.Time.Before(start) {
			continue
		}
		if !end.IsZero() && c.Time.After(end) {
			break
		}
		out = append(out, c)
	}
	return out
}

// DataError marks fatal data-supply problems: malformed rows, empty
// filtered ranges, unknown timeframes. Runs abort on these.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "market data: " + e.Reason
}

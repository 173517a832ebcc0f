// Package synth turns historical candles into a plausible intra-candle
// tick stream for tick-level backtesting.
package synth

import (
	"math"
	"math/rand"
	"time"

	"github.com/quantlab/fxbacktest/market"
)

const (
	// DefaultVolatilityWindow is the trailing candle count used for the
	// rolling volatility estimate.
	DefaultVolatilityWindow = 20

	// tickCountScale converts volatility (price range) into a tick
	// count before clamping.
	tickCountScale = 10_000

	// MinTicksPerCandle and MaxTicksPerCandle bound the ticks generated
	// for any single candle.
	MinTicksPerCandle = 5
	MaxTicksPerCandle = 100

	// noiseFraction scales the Gaussian noise applied around the
	// open-to-close interpolation line.
	noiseFraction = 0.1
)

// Config tunes the simulator.
type Config struct {
	// Spread is ask minus bid, in price units.
	Spread float64

	// Seed fixes the noise stream so replays are bit-reproducible.
	// Zero means seed from the clock.
	Seed int64

	// VolatilityWindow overrides the trailing window; zero selects
	// DefaultVolatilityWindow.
	VolatilityWindow int
}

// Simulator yields the ticks for a candle series in strict
// chronological order. It is restartable: Reset rewinds to the first
// candle and, with a fixed Seed, regenerates an identical stream.
type Simulator struct {
	candles []market.Candle
	cfg     Config
	seed    int64

	vols   []float64 // rolling mean high-low range per candle
	counts []int     // ticks per candle, clamped

	rng *rand.Rand

	candleIdx int
	buf       []market.Tick
	bufIdx    int
}

// New validates the series, precomputes per-candle volatility and tick
// counts, and positions the simulator at the first candle. An empty
// series is legal and yields an immediately-exhausted stream.
func New(candles []market.Candle, cfg Config) (*Simulator, error) {
	if err := market.ValidateSeries(candles); err != nil {
		return nil, err
	}
	if cfg.VolatilityWindow <= 0 {
		cfg.VolatilityWindow = DefaultVolatilityWindow
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Simulator{
		candles: candles,
		cfg:     cfg,
		seed:    seed,
	}
	s.prepare()
	s.Reset()
	return s, nil
}

// prepare derives the rolling volatility and tick count columns. Before
// the window fills, volatility falls back to the mean range of the whole
// series; tick counts are clamped into [5, 100].
func (s *Simulator) prepare() {
	n := len(s.candles)
	s.vols = make([]float64, n)
	s.counts = make([]int, n)
	if n == 0 {
		return
	}

	meanRange := 0.0
	for _, c := range s.candles {
		meanRange += c.Range()
	}
	meanRange /= float64(n)

	w := s.cfg.VolatilityWindow
	sum := 0.0
	for i, c := range s.candles {
		sum += c.Range()
		if i >= w {
			sum -= s.candles[i-w].Range()
		}
		if i >= w-1 {
			s.vols[i] = sum / float64(w)
		} else {
			s.vols[i] = meanRange
		}

		count := int(math.Round(s.vols[i] * tickCountScale))
		if count < MinTicksPerCandle {
			count = MinTicksPerCandle
		}
		if count > MaxTicksPerCandle {
			count = MaxTicksPerCandle
		}
		s.counts[i] = count
	}
}

// Next returns the next tick or ok=false when the series is exhausted.
func (s *Simulator) Next() (market.Tick, bool) {
	for {
		if s.candleIdx >= len(s.candles) {
			return market.Tick{}, false
		}
		if s.buf == nil {
			s.buf = s.generate(s.candleIdx)
			s.bufIdx = 0
		}
		if s.bufIdx < len(s.buf) {
			t := s.buf[s.bufIdx]
			s.bufIdx++
			return t, true
		}
		s.candleIdx++
		s.buf = nil
	}
}

// generate builds the tick run for one candle: a linear walk from open
// to close, Gaussian noise scaled to the candle's volatility, every
// price clamped back into [low, high], and timestamps subdividing the
// candle's duration evenly.
func (s *Simulator) generate(idx int) []market.Tick {
	c := s.candles[idx]
	n := s.counts[idx]
	vol := s.vols[idx]

	dur := c.Timeframe.Duration()
	if dur == 0 {
		dur = time.Minute
	}
	step := dur / time.Duration(n)

	ticks := make([]market.Tick, n)
	for i := 0; i < n; i++ {
		frac := 0.0
		if n > 1 {
			frac = float64(i) / float64(n-1)
		}
		bid := c.Open + (c.Close-c.Open)*frac
		bid += s.rng.NormFloat64() * vol * noiseFraction

		if bid < c.Low {
			bid = c.Low
		}
		if bid > c.High {
			bid = c.High
		}

		ask := bid + s.cfg.Spread
		ticks[i] = market.Tick{
			Symbol: c.Symbol,
			Time:   c.Time.Add(time.Duration(i) * step),
			Bid:    bid,
			Ask:    ask,
			Last:   (bid + ask) / 2,
			Volume: 1 + s.rng.Intn(9),
		}
	}
	return ticks
}

// Reset rewinds to the first candle and re-seeds the noise stream, so a
// seeded simulator replays the exact same ticks.
func (s *Simulator) Reset() {
	s.rng = rand.New(rand.NewSource(s.seed))
	s.candleIdx = 0
	s.buf = nil
	s.bufIdx = 0
}

// Progress reports the fraction of candles consumed, in [0, 1].
func (s *Simulator) Progress() float64 {
	if len(s.candles) == 0 {
		return 0
	}
	p := float64(s.candleIdx) / float64(len(s.candles))
	if p > 1 {
		p = 1
	}
	return p
}

// TotalTicks returns the number of ticks a full drain will produce.
func (s *Simulator) TotalTicks() int {
	total := 0
	for _, c := range s.counts {
		total += c
	}
	return total
}

// Candles returns the number of candles backing the stream.
func (s *Simulator) Candles() int {
	return len(s.candles)
}

package detector

import (
	"math"

	"github.com/moznion/go-optional"

	"github.com/quantbee/thresholdbt/internal/indicator"
	"github.com/quantbee/thresholdbt/internal/types"
)

// Default oscillator thresholds.
const (
	DefaultLowThreshold  = 20.0
	DefaultHighThreshold = 80.0
)

// defaultStopFraction is applied when a reward ratio is configured without an
// explicit stop fraction, so the ratio stays meaningful.
const defaultStopFraction = 0.01

// Config controls signal detection. Thresholds are configuration, not derived
// from data.
type Config struct {
	LowThreshold  float64
	HighThreshold float64
	// StopFraction is the fractional distance of the stop from the entry.
	// When absent and RewardRatio is also absent, detected signals are soft:
	// side and entry only, no stop/take levels.
	StopFraction optional.Option[float64]
	// RewardRatio sizes the take-profit distance as a multiple of the stop
	// distance. When absent, the take price falls back to a 3:1 reward
	// computed from the stop fraction directly.
	RewardRatio optional.Option[float64]
	// DebounceMinutes is accepted for interface compatibility with the live
	// signal engine. The detector is stateless, so it has no effect here.
	DebounceMinutes int
}

// Detector converts the latest indicator values of a bar sequence into an
// optional entry decision. It holds no mutable state: identical inputs always
// produce an identical result.
type Detector struct {
	indicators indicator.Config
	config     Config
}

// New creates a detector with the given indicator spans and detection config.
func New(indicators indicator.Config, config Config) *Detector {
	return &Detector{
		indicators: indicators,
		config:     config,
	}
}

// Detect computes indicators over the given bars and evaluates the final bar.
// Indicators are recomputed from the prefix on every call, which keeps the
// decision causal by construction when the engine feeds growing prefixes.
func (d *Detector) Detect(symbol string, bars []types.Bar) optional.Option[types.Signal] {
	if len(bars) == 0 {
		return optional.None[types.Signal]()
	}

	snapshots := indicator.Compute(bars, d.indicators)

	return d.evaluate(symbol, bars[len(bars)-1], snapshots[len(snapshots)-1])
}

// evaluate applies the threshold rules to the final bar's snapshot.
func (d *Detector) evaluate(symbol string, last types.Bar, snapshot indicator.Snapshot) optional.Option[types.Signal] {
	// Warm-up bars have no oscillator value and never produce a signal.
	if snapshot.Oscillator.IsNone() {
		return optional.None[types.Signal]()
	}

	oscillator := snapshot.Oscillator.Unwrap()
	if math.IsNaN(oscillator) {
		return optional.None[types.Signal]()
	}

	var side types.Side

	switch {
	case oscillator <= d.config.LowThreshold:
		side = types.SideBuy
	case oscillator >= d.config.HighThreshold:
		side = types.SideSell
	default:
		return optional.None[types.Signal]()
	}

	entry := last.Close
	signal := types.Signal{
		Symbol:       symbol,
		Side:         side,
		EntryPrice:   entry,
		EntryTime:    last.Time,
		StopPrice:    optional.None[float64](),
		TakePrice:    optional.None[float64](),
		StopFraction: optional.None[float64](),
		RewardRatio:  d.config.RewardRatio,
		Oscillator:   oscillator,
	}

	stopFraction := d.config.StopFraction
	if stopFraction.IsNone() && d.config.RewardRatio.IsSome() {
		stopFraction = optional.Some(defaultStopFraction)
	}

	// Without a stop fraction the levels stay undefined: a soft signal.
	if stopFraction.IsNone() {
		return optional.Some(signal)
	}

	sf := stopFraction.Unwrap()
	signal.StopFraction = stopFraction

	var stop float64
	if side == types.SideBuy {
		stop = entry * (1 - sf)
	} else {
		stop = entry * (1 + sf)
	}

	var take float64

	if d.config.RewardRatio.IsSome() {
		rr := d.config.RewardRatio.Unwrap()
		risk := math.Abs(entry - stop)

		if side == types.SideBuy {
			take = entry + rr*risk
		} else {
			take = entry - rr*risk
		}
	} else {
		// Legacy default when only the stop fraction is given: approximate a
		// 3:1 reward from the fraction directly. Downstream consumers depend
		// on this exact formula, so it is kept separate from the reward-ratio
		// path above.
		if side == types.SideBuy {
			take = entry * (1 + 3*sf)
		} else {
			take = entry * (1 - 3*sf)
		}
	}

	signal.StopPrice = optional.Some(stop)
	signal.TakePrice = optional.Some(take)

	return optional.Some(signal)
}

package indicator

import (
	"github.com/moznion/go-optional"

	"github.com/quantbee/thresholdbt/internal/types"
)

// Config holds the indicator spans used by one simulation pass.
type Config struct {
	FastSpan         int
	SlowSpan         int
	OscillatorPeriod int
}

// Snapshot is the indicator triple derived for one bar. The value at index i
// depends only on bars [0..i]; this causality is the component's core
// contract.
type Snapshot struct {
	FastEMA    float64
	SlowEMA    float64
	Oscillator optional.Option[float64]
}

// Compute derives one snapshot per bar from the close series. Callers that
// need strict walk-forward semantics invoke it on a prefix of the bar
// sequence; the recursive formulas never look ahead, so the full-series result
// at index i equals the prefix result ending at i.
func Compute(bars []types.Bar, cfg Config) []Snapshot {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	fast := EMA(closes, cfg.FastSpan)
	slow := EMA(closes, cfg.SlowSpan)
	osc := RSI(closes, cfg.OscillatorPeriod)

	snapshots := make([]Snapshot, len(bars))
	for i := range snapshots {
		snapshots[i] = Snapshot{
			FastEMA:    fast[i],
			SlowEMA:    slow[i],
			Oscillator: osc[i],
		}
	}

	return snapshots
}

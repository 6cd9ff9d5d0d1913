package indicator

import (
	"math"

	"github.com/moznion/go-optional"
)

// EMA computes an exponential moving average over the whole series using
// alpha = 2/(span+1). The first output equals the first input and the output
// is index-aligned with the input. span must be >= 1.
func EMA(series []float64, span int) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 {
		return out
	}

	alpha := 2.0 / float64(span+1)
	out[0] = series[0]

	for i := 1; i < len(series); i++ {
		out[i] = alpha*series[i] + (1-alpha)*out[i-1]
	}

	return out
}

// SMA computes a trailing simple moving average with a minimum period of 1:
// the first window-1 outputs average however many values are available.
func SMA(series []float64, window int) []float64 {
	out := make([]float64, len(series))
	if window < 1 {
		window = 1
	}

	sum := 0.0

	for i, v := range series {
		sum += v
		if i >= window {
			sum -= series[i-window]
		}

		n := i + 1
		if n > window {
			n = window
		}

		out[i] = sum / float64(n)
	}

	return out
}

// RSI computes a Wilder-smoothed relative strength oscillator in [0, 100].
// Per-step changes are split into gains and losses and each side is smoothed
// with alpha = 1/period (Wilder smoothing, not the span-based EMA decay).
//
// The first `period` change observations are warm-up: their outputs are None,
// not zero. Zero-filling warm-up values can manufacture spurious threshold
// crossings at the start of a series, so the undefined/defined distinction is
// kept explicit and any numeric fallback is the caller's choice.
func RSI(series []float64, period int) []optional.Option[float64] {
	out := make([]optional.Option[float64], len(series))
	for i := range out {
		out[i] = optional.None[float64]()
	}

	if period < 1 || len(series) < 2 {
		return out
	}

	alpha := 1.0 / float64(period)

	var avgGain, avgLoss float64

	for i := 1; i < len(series); i++ {
		change := series[i] - series[i-1]
		gain := math.Max(change, 0)
		loss := math.Max(-change, 0)

		if i == 1 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}

		if i >= period {
			out[i] = optional.Some(rsiValue(avgGain, avgLoss))
		}
	}

	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	// No losses means maximal strength.
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	value := 100 - 100/(1+rs)

	return math.Min(100, math.Max(0, value))
}

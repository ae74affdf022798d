package indicator

import "signal-enginev1/internal/model"

// Oscillator holds the stochastic %K and %D values.
type Oscillator struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// Stochastic returns %K = (close - lowestLow) / (highestHigh - lowestLow)
// over the last period bars, clamped to [0, 100]. %D is a simplified alias
// of %K here, not a 3-period moving average; downstream thresholds assume
// this. Returns the neutral 50/50 when history is short or the window has
// zero range.
func Stochastic(bars []model.Bar, period int) Oscillator {
	if period <= 0 || len(bars) < period {
		return Oscillator{K: 50, D: 50}
	}

	window := bars[len(bars)-period:]
	highest := window[0].High
	lowest := window[0].Low
	for _, b := range window[1:] {
		if b.High > highest {
			highest = b.High
		}
		if b.Low < lowest {
			lowest = b.Low
		}
	}

	if highest == lowest {
		return Oscillator{K: 50, D: 50}
	}

	close := bars[len(bars)-1].Close
	k := clamp((close-lowest)/(highest-lowest)*100, 0, 100)
	return Oscillator{K: k, D: k}
}

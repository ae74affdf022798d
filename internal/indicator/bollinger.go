package indicator

import "math"

// Bands holds Bollinger band levels.
type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Bollinger returns SMA(period) +/- 2x the population standard deviation of
// the last period closes. The second return value is false when fewer than
// period closes exist.
func Bollinger(closes []float64, period int) (Bands, bool) {
	sma, ok := SMA(closes, period)
	if !ok {
		return Bands{}, false
	}

	variance := 0.0
	for _, c := range closes[len(closes)-period:] {
		d := c - sma
		variance += d * d
	}
	variance /= float64(period)
	std := math.Sqrt(variance)

	return Bands{
		Upper:  sma + 2*std,
		Middle: sma,
		Lower:  sma - 2*std,
	}, true
}

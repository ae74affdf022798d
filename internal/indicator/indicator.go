// Package indicator provides technical indicator calculations over bar data.
//
// All indicators are pure functions over a closes series or a bar series.
// None of them fail on short history: indicators with a natural neutral
// value return it (RSI 50, ADX 25, ATR 0), the rest report readiness via a
// second return value so callers can render null.
package indicator

import (
	"math"

	"signal-enginev1/internal/model"
)

// trueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(cur, prev model.Bar) float64 {
	tr := cur.High - cur.Low
	if hc := math.Abs(cur.High - prev.Close); hc > tr {
		tr = hc
	}
	if lc := math.Abs(cur.Low - prev.Close); lc > tr {
		tr = lc
	}
	return tr
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package indicator

import (
	"math"

	"signal-enginev1/internal/model"
)

// ADX returns a trend-strength measure in [0, 100] built from directional
// movement sums over the last period bars. Returns the neutral 25 when
// fewer than period+1 bars exist, when the true-range sum is zero, or when
// both directional indices are zero.
func ADX(bars []model.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 25
	}

	plusDM := 0.0
	minusDM := 0.0
	trSum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		highDiff := bars[i].High - bars[i-1].High
		lowDiff := bars[i-1].Low - bars[i].Low

		if highDiff > lowDiff && highDiff > 0 {
			plusDM += highDiff
		}
		if lowDiff > highDiff && lowDiff > 0 {
			minusDM += lowDiff
		}

		trSum += trueRange(bars[i], bars[i-1])
	}

	if trSum == 0 {
		return 25
	}

	plusDI := plusDM / trSum * 100
	minusDI := minusDM / trSum * 100
	if plusDI+minusDI == 0 {
		return 25
	}

	dx := math.Abs(plusDI-minusDI) / (plusDI + minusDI) * 100
	return clamp(dx, 0, 100)
}

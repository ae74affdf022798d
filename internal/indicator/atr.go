package indicator

import "signal-enginev1/internal/model"

// ATR returns the mean of the last period true ranges. Returns 0 when
// fewer than period+1 bars exist (a true range needs the previous close).
func ATR(bars []model.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}
	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		sum += trueRange(bars[i], bars[i-1])
	}
	return sum / float64(period)
}

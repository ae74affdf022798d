package indicator

// EMA returns the exponential moving average of closes with the given period.
// The seed is the SMA of the first period closes; each later close is folded
// in with smoothing factor k = 2/(period+1). The second return value is
// false when fewer than period closes exist.
func EMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}

	sum := 0.0
	for _, c := range closes[:period] {
		sum += c
	}
	ema := sum / float64(period)

	k := 2.0 / float64(period+1)
	for _, price := range closes[period:] {
		ema = price*k + ema*(1-k)
	}
	return ema, true
}

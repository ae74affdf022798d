package indicator

// SMA returns the arithmetic mean of the last period closes.
// The second return value is false when fewer than period closes exist.
func SMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period), true
}

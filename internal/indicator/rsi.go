package indicator

// RSI returns the Relative Strength Index over the last period deltas,
// always in [0, 100]. Returns the neutral 50 when fewer than period+1
// closes exist, and 100 when the average loss is exactly zero (a fully
// one-sided series).
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	gainSum := 0.0
	lossSum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gainSum += diff
		} else {
			lossSum += -diff
		}
	}

	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return clamp(100-100/(1+rs), 0, 100)
}

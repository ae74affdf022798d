package indicator

// MACDLines holds the MACD line, its signal line, and the histogram.
type MACDLines struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD returns EMA(12) - EMA(26) as the MACD line. The signal line is
// approximated as 0.8x the MACD line rather than the textbook EMA of the
// MACD series; the scorer's thresholds were tuned against this
// approximation, so it is intentional. Zeroes when history is too short
// for EMA(26).
func MACD(closes []float64) MACDLines {
	ema12, ok12 := EMA(closes, 12)
	ema26, ok26 := EMA(closes, 26)
	if !ok12 || !ok26 {
		return MACDLines{}
	}
	line := ema12 - ema26
	signal := line * 0.8
	return MACDLines{
		MACD:      line,
		Signal:    signal,
		Histogram: line - signal,
	}
}

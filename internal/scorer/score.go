package scorer

import (
	"fmt"
	"math"

	"signal-enginev1/internal/backtest"
	"signal-enginev1/internal/indicator"
	"signal-enginev1/internal/model"
)

// Sub-score weights. They sum to 1.0; trend carries the most weight
// because it has proven the most reliable for gold.
const (
	weightTrend      = 0.30
	weightMomentum   = 0.25
	weightMACD       = 0.20
	weightVolatility = 0.15
	weightStrength   = 0.10
)

// Decision thresholds on the composite score.
const (
	buyThreshold  = 35.0
	sellThreshold = -35.0
)

// SubScores holds the five weighted component scores, each roughly in
// [-100, 100].
type SubScores struct {
	Trend      float64 `json:"trend"`
	Momentum   float64 `json:"momentum"`
	MACD       float64 `json:"macd"`
	Volatility float64 `json:"volatility"`
	Strength   float64 `json:"strength"`
}

// IndicatorSet is the indicator snapshot attached to every evaluation.
// Pointer fields are nil when the history is too short for the indicator.
type IndicatorSet struct {
	SMA20 *float64             `json:"sma20"`
	SMA50 *float64             `json:"sma50"`
	RSI   float64              `json:"rsi"`
	Stoch indicator.Oscillator `json:"stoch"`
	MACD  indicator.MACDLines  `json:"macd"`
	BB    *indicator.Bands     `json:"bb"`
	ATR   float64              `json:"atr"`
	ADX   float64              `json:"adx"`
}

// outcome is the result of one pure scoring pass. It carries no state and
// triggers no side effects; the Scorer shell decides what to do with it.
type outcome struct {
	decision   backtest.Decision
	confidence int
	score      float64
	subs       SubScores
	reasons    []string
	indicators IndicatorSet
	adx        float64
}

// score computes the weighted composite and decision from the current bar
// set and price. Pure: same inputs, same outcome.
func score(bars []model.Bar, bid float64) outcome {
	closes := model.Closes(bars)
	current := bid

	sma20, okSMA20 := indicator.SMA(closes, 20)
	sma50, okSMA50 := indicator.SMA(closes, 50)
	rsi := indicator.RSI(closes, 14)
	macd := indicator.MACD(closes)
	bb, okBB := indicator.Bollinger(closes, 20)
	atr := indicator.ATR(bars, 14)
	stoch := indicator.Stochastic(bars, 14)
	adx := indicator.ADX(bars, 14)

	var subs SubScores
	var reasons []string

	// 1. Trend (30%): price vs SMA20 vs SMA50 ordering. Full alignment is
	// decisive; price crossing against a still-lagging SMA50 reads as a
	// forming reversal.
	if okSMA20 && okSMA50 {
		switch {
		case current > sma20 && sma20 > sma50:
			subs.Trend = 100
			reasons = append(reasons, "Strong uptrend")
		case current > sma20 && sma20 < sma50:
			subs.Trend = 60
			reasons = append(reasons, "Trend turning bullish")
		case current < sma20 && sma20 < sma50:
			subs.Trend = -100
			reasons = append(reasons, "Strong downtrend")
		case current < sma20 && sma20 > sma50:
			subs.Trend = -60
			reasons = append(reasons, "Trend turning bearish")
		}
	}

	// 2. Momentum (25%): RSI extremes confirmed by Stochastic.
	rsiScore := 0.0
	switch {
	case rsi < 25:
		rsiScore = 100
		reasons = append(reasons, fmt.Sprintf("RSI extreme oversold (%.0f)", rsi))
	case rsi < 35:
		rsiScore = 70
		reasons = append(reasons, fmt.Sprintf("RSI oversold (%.0f)", rsi))
	case rsi > 75:
		rsiScore = -100
		reasons = append(reasons, fmt.Sprintf("RSI extreme overbought (%.0f)", rsi))
	case rsi > 65:
		rsiScore = -70
		reasons = append(reasons, fmt.Sprintf("RSI overbought (%.0f)", rsi))
	}

	stochScore := 0.0
	if stoch.K < 20 {
		stochScore = 80
	} else if stoch.K > 80 {
		stochScore = -80
	}

	if (rsiScore > 0 && stochScore > 0) || (rsiScore < 0 && stochScore < 0) {
		// Both oscillators agree: 20% confirmation bonus.
		subs.Momentum = (rsiScore + stochScore) / 2 * 1.2
	} else {
		subs.Momentum = (rsiScore + stochScore) / 2
	}

	// 3. MACD (20%): directional agreement of histogram and line,
	// escalated when the histogram dominates the signal line.
	switch {
	case macd.Histogram > 0 && macd.MACD > macd.Signal:
		subs.MACD = 80
		if macd.Histogram > math.Abs(macd.Signal)*0.1 {
			subs.MACD = 100
			reasons = append(reasons, "MACD strong bullish")
		}
	case macd.Histogram < 0 && macd.MACD < macd.Signal:
		subs.MACD = -80
		if math.Abs(macd.Histogram) > math.Abs(macd.Signal)*0.1 {
			subs.MACD = -100
			reasons = append(reasons, "MACD strong bearish")
		}
	default:
		subs.MACD = macd.Histogram * 10 // scaled fallback
	}

	// 4. Volatility (15%): position inside the Bollinger band, traded as
	// mean reversion.
	if okBB {
		bbPos := 50.0
		if bb.Upper != bb.Lower {
			bbPos = (current - bb.Lower) / (bb.Upper - bb.Lower) * 100
		}
		switch {
		case bbPos < 10:
			subs.Volatility = 100
			reasons = append(reasons, "Below BB lower (oversold)")
		case bbPos < 25:
			subs.Volatility = 60
		case bbPos > 90:
			subs.Volatility = -100
			reasons = append(reasons, "Above BB upper (overbought)")
		case bbPos > 75:
			subs.Volatility = -60
		}
	}

	// 5. Strength (10%): ADX gates how much the trend is trusted.
	switch {
	case adx > 40:
		if subs.Trend > 0 {
			subs.Strength = 100
		} else {
			subs.Strength = -100
		}
		reasons = append(reasons, fmt.Sprintf("Very strong trend (ADX %.0f)", adx))
	case adx > 25:
		if subs.Trend > 0 {
			subs.Strength = 50
		} else {
			subs.Strength = -50
		}
	}

	composite := subs.Trend*weightTrend +
		subs.Momentum*weightMomentum +
		subs.MACD*weightMACD +
		subs.Volatility*weightVolatility +
		subs.Strength*weightStrength

	var decision backtest.Decision
	var confidence int
	switch {
	case composite > buyThreshold:
		decision = backtest.Buy
		confidence = minInt(95, 50+int(composite/2))
	case composite < sellThreshold:
		decision = backtest.Sell
		confidence = minInt(95, 50+int(math.Abs(composite)/2))
	default:
		decision = backtest.Hold
		confidence = maxInt(30, 50-int(math.Abs(composite)))
	}

	// Weak trends get their confidence damped regardless of decision.
	if adx < 20 {
		confidence = int(float64(confidence) * 0.7)
		reasons = append(reasons, fmt.Sprintf("Weak trend (ADX %.0f)", adx))
	}

	set := IndicatorSet{
		RSI:   round1(rsi),
		Stoch: indicator.Oscillator{K: round1(stoch.K), D: round1(stoch.D)},
		MACD: indicator.MACDLines{
			MACD:      round4(macd.MACD),
			Signal:    round4(macd.Signal),
			Histogram: round4(macd.Histogram),
		},
		ATR: round2(atr),
		ADX: round1(adx),
	}
	if okSMA20 {
		v := round2(sma20)
		set.SMA20 = &v
	}
	if okSMA50 {
		v := round2(sma50)
		set.SMA50 = &v
	}
	if okBB {
		rounded := indicator.Bands{Upper: round2(bb.Upper), Middle: round2(bb.Middle), Lower: round2(bb.Lower)}
		set.BB = &rounded
	}

	return outcome{
		decision:   decision,
		confidence: confidence,
		score:      composite,
		subs:       subs,
		reasons:    reasons,
		indicators: set,
		adx:        adx,
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

// Package scorer turns a bar history and live price into a weighted
// multi-indicator trading signal. Scoring itself is pure; the Scorer shell
// tracks signal transitions, keeps the rolling history, and feeds the
// backtest validator.
package scorer

import (
	"sync"
	"time"

	"signal-enginev1/internal/backtest"
	"signal-enginev1/internal/model"
)

// minBars is the minimum history required before scoring; below it every
// evaluation is a zero-confidence HOLD with no side effects.
const minBars = 50

const maxHistory = 100

// Stats counts signal transitions since startup, bucketed by decision.
type Stats struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
	Buy     int `json:"buy"`
	Sell    int `json:"sell"`
	Hold    int `json:"hold"`
}

// HistoryEntry records one signal transition.
type HistoryEntry struct {
	Time       string            `json:"time"`
	Date       string            `json:"date"`
	Signal     backtest.Decision `json:"signal"`
	Price      float64           `json:"price"`
	Confidence int               `json:"confidence"`
	Score      float64           `json:"score"`
	Reasons    []string          `json:"reasons"`
	PrevSignal backtest.Decision `json:"prev_signal"`
}

// Evaluation is the full scoring result for one tick.
type Evaluation struct {
	Signal     backtest.Decision     `json:"signal"`
	Confidence int                   `json:"confidence"`
	Score      float64               `json:"score"`
	Scores     SubScores             `json:"scores"`
	BuyVotes   int                   `json:"buy_votes"`
	SellVotes  int                   `json:"sell_votes"`
	Reasons    []string              `json:"reasons"`
	Indicators *IndicatorSet         `json:"indicators,omitempty"`
	Stats      Stats                 `json:"stats"`
	History    []HistoryEntry        `json:"history"`
	Backtest   backtest.WinRate      `json:"backtest"`
	Validated  []backtest.Resolution `json:"validated"`

	// Changed reports whether this evaluation flipped the signal.
	Changed bool `json:"-"`
}

// Scorer evaluates bars into signals and tracks transitions across calls.
// Safe for concurrent use.
type Scorer struct {
	mu         sync.Mutex
	validator  *backtest.Validator
	stats      Stats
	history    []HistoryEntry
	lastSignal backtest.Decision
}

func New(v *backtest.Validator) *Scorer {
	return &Scorer{validator: v}
}

// Evaluate scores the bar set at the given bid. Pending backtest entries
// old enough are resolved first, then a signal transition (if any) is
// counted, tracked for validation and appended to the history.
func (s *Scorer) Evaluate(bars []model.Bar, bid float64, now time.Time) *Evaluation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(bars) < minBars {
		return &Evaluation{
			Signal:     backtest.Hold,
			Confidence: 0,
			Reasons:    []string{"Insufficient data"},
			Stats:      s.stats,
			History:    lastHistory(s.history, 10),
			Backtest:   s.validator.WinRate(),
			Validated:  []backtest.Resolution{},
		}
	}

	out := score(bars, bid)

	resolved := s.validator.Resolve(now, bid)

	changed := out.decision != s.lastSignal
	if changed {
		s.stats.Total++
		switch out.decision {
		case backtest.Buy:
			s.stats.Buy++
		case backtest.Sell:
			s.stats.Sell++
		default:
			s.stats.Hold++
		}

		s.validator.Track(out.decision, bid, out.confidence, now)

		s.history = append(s.history, HistoryEntry{
			Time:       now.Format("15:04:05"),
			Date:       now.Format("2006-01-02"),
			Signal:     out.decision,
			Price:      round2(bid),
			Confidence: out.confidence,
			Score:      round1(out.score),
			Reasons:    firstN(out.reasons, 3),
			PrevSignal: s.lastSignal,
		})
		if len(s.history) > maxHistory {
			s.history = s.history[len(s.history)-maxHistory:]
		}
		s.lastSignal = out.decision
	}

	indicators := out.indicators
	return &Evaluation{
		Signal:     out.decision,
		Confidence: out.confidence,
		Score:      round1(out.score),
		Scores: SubScores{
			Trend:      round1(out.subs.Trend),
			Momentum:   round1(out.subs.Momentum),
			MACD:       round1(out.subs.MACD),
			Volatility: round1(out.subs.Volatility),
			Strength:   round1(out.subs.Strength),
		},
		BuyVotes:   countVotes(out.subs, func(v float64) bool { return v > 30 }),
		SellVotes:  countVotes(out.subs, func(v float64) bool { return v < -30 }),
		Reasons:    firstN(out.reasons, 4),
		Indicators: &indicators,
		Stats:      s.stats,
		History:    lastHistory(s.history, 10),
		Backtest:   s.validator.WinRate(),
		Validated:  lastResolutions(resolved, 5),
		Changed:    changed,
	}
}

// Stats returns the transition counters accumulated so far.
func (s *Scorer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// LastSignal returns the most recent non-repeated decision, or the empty
// decision before the first transition.
func (s *Scorer) LastSignal() backtest.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSignal
}

func countVotes(subs SubScores, match func(float64) bool) int {
	n := 0
	for _, v := range []float64{subs.Trend, subs.Momentum, subs.MACD, subs.Volatility, subs.Strength} {
		if match(v) {
			n++
		}
	}
	return n
}

func firstN(in []string, n int) []string {
	if len(in) <= n {
		return in
	}
	return in[:n]
}

func lastHistory(in []HistoryEntry, n int) []HistoryEntry {
	if len(in) <= n {
		out := make([]HistoryEntry, len(in))
		copy(out, in)
		return out
	}
	out := make([]HistoryEntry, n)
	copy(out, in[len(in)-n:])
	return out
}

func lastResolutions(in []backtest.Resolution, n int) []backtest.Resolution {
	if len(in) <= n {
		if in == nil {
			return []backtest.Resolution{}
		}
		return in
	}
	return in[len(in)-n:]
}

// Package backtest scores past signal changes against realized price
// action. Every signal change is enqueued as a pending prediction; after a
// fixed delay it is resolved against the current price and folded into
// cumulative win/loss statistics. State survives restarts via a JSON file.
//
// Not goroutine-safe: the engine serializes all access.
package backtest

import (
	"encoding/json"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"
)

const (
	// ResolveAfter is the delay before a pending signal is scored (4 hours,
	// ~48 base bars).
	ResolveAfter = 14400 * time.Second

	// minMovePips is the minimum favorable move for a BUY/SELL win
	// (100 pips = 1.00 for gold). A HOLD wins when the absolute move stays
	// under twice this threshold.
	minMovePips = 100.0

	// maxPending bounds the queue; the oldest entries drop silently.
	maxPending = 20
)

// Decision is an emitted trading signal kind.
type Decision string

const (
	Buy  Decision = "BUY"
	Sell Decision = "SELL"
	Hold Decision = "HOLD"
)

// PendingSignal is a recorded prediction awaiting outcome scoring.
type PendingSignal struct {
	Signal     Decision `json:"signal"`
	Price      float64  `json:"price"`     // entry price at signal change
	Timestamp  int64    `json:"timestamp"` // creation wall-clock, unix seconds
	Time       string   `json:"time"`      // creation wall-clock "HH:MM:SS"
	Confidence int      `json:"confidence"`
}

// Results holds the cumulative validation counters. All fields are
// monotonically non-decreasing.
type Results struct {
	Total     int `json:"total"`
	Wins      int `json:"wins"`
	Losses    int `json:"losses"`
	BuyTotal  int `json:"buy_total"`
	BuyWins   int `json:"buy_wins"`
	SellTotal int `json:"sell_total"`
	SellWins  int `json:"sell_wins"`
}

// Resolution is the outcome of one scored prediction.
type Resolution struct {
	Signal Decision `json:"signal"`
	Entry  float64  `json:"entry"`
	Exit   float64  `json:"exit"`
	Pips   float64  `json:"pips"`
	Win    bool     `json:"win"`
	Time   string   `json:"time"` // creation time of the prediction
}

// WinRate is the exposed win-rate summary. Rates are 0 when the
// corresponding total is 0.
type WinRate struct {
	WinRate  float64 `json:"win_rate"`
	Total    int     `json:"total"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	BuyRate  float64 `json:"buy_rate"`
	SellRate float64 `json:"sell_rate"`
	Pending  int     `json:"pending"`
}

// state is the persisted file format: {pending, results}.
type state struct {
	Pending []PendingSignal `json:"pending"`
	Results Results         `json:"results"`
}

// Validator owns the pending queue and cumulative results.
type Validator struct {
	path    string
	pending []PendingSignal
	results Results
}

// New creates a Validator persisting to the given file path.
func New(path string) *Validator {
	return &Validator{path: path}
}

// Load restores pending signals and results from disk. Missing or
// malformed state starts empty; never fatal.
func (v *Validator) Load() {
	data, err := os.ReadFile(v.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[backtest] load error: %v", err)
		}
		return
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		log.Printf("[backtest] parse error, starting fresh: %v", err)
		return
	}
	v.pending = st.Pending
	v.results = st.Results
	log.Printf("[backtest] loaded: %d pending, %d validated, %d wins",
		len(v.pending), v.results.Total, v.results.Wins)
}

// Track enqueues a new prediction for the given signal change and persists
// immediately. The queue keeps only the 20 most recent entries.
func (v *Validator) Track(sig Decision, price float64, confidence int, now time.Time) {
	v.pending = append(v.pending, PendingSignal{
		Signal:     sig,
		Price:      price,
		Timestamp:  now.Unix(),
		Time:       now.Format("15:04:05"),
		Confidence: confidence,
	})
	if len(v.pending) > maxPending {
		v.pending = v.pending[len(v.pending)-maxPending:]
	}
	v.save()
}

// Resolve scores every pending prediction at least 4 hours old against the
// current price, updates the counters, and removes the resolved entries.
// BUY pips = (current-entry)*100, SELL pips = (entry-current)*100, HOLD
// pips = |current-entry|*100. State is persisted when anything resolved.
func (v *Validator) Resolve(now time.Time, currentPrice float64) []Resolution {
	var resolved []Resolution
	remaining := v.pending[:0]

	for _, p := range v.pending {
		if now.Unix()-p.Timestamp < int64(ResolveAfter.Seconds()) {
			remaining = append(remaining, p)
			continue
		}

		var pips float64
		var win bool
		switch p.Signal {
		case Buy:
			pips = (currentPrice - p.Price) * 100
			win = pips >= minMovePips
			v.results.BuyTotal++
			if win {
				v.results.BuyWins++
			}
		case Sell:
			pips = (p.Price - currentPrice) * 100
			win = pips >= minMovePips
			v.results.SellTotal++
			if win {
				v.results.SellWins++
			}
		default:
			// HOLD wins when price stayed within twice the move threshold.
			pips = math.Abs(currentPrice-p.Price) * 100
			win = pips < minMovePips*2
		}

		v.results.Total++
		if win {
			v.results.Wins++
		} else {
			v.results.Losses++
		}

		resolved = append(resolved, Resolution{
			Signal: p.Signal,
			Entry:  p.Price,
			Exit:   currentPrice,
			Pips:   math.Round(pips*10) / 10,
			Win:    win,
			Time:   p.Time,
		})
	}

	v.pending = remaining
	if len(v.pending) > maxPending {
		v.pending = v.pending[len(v.pending)-maxPending:]
	}

	if len(resolved) > 0 {
		v.save()
	}
	return resolved
}

// WinRate returns the current win-rate summary.
func (v *Validator) WinRate() WinRate {
	wr := WinRate{
		Total:   v.results.Total,
		Wins:    v.results.Wins,
		Losses:  v.results.Losses,
		Pending: len(v.pending),
	}
	if v.results.Total > 0 {
		wr.WinRate = round1(float64(v.results.Wins) / float64(v.results.Total) * 100)
	}
	if v.results.BuyTotal > 0 {
		wr.BuyRate = round1(float64(v.results.BuyWins) / float64(v.results.BuyTotal) * 100)
	}
	if v.results.SellTotal > 0 {
		wr.SellRate = round1(float64(v.results.SellWins) / float64(v.results.SellTotal) * 100)
	}
	return wr
}

// Results returns a copy of the cumulative counters.
func (v *Validator) Results() Results { return v.results }

// PendingCount returns the number of outstanding predictions.
func (v *Validator) PendingCount() int { return len(v.pending) }

// save persists {pending, results}. Failures are logged; the unsaved
// state is retried on the next Track/Resolve.
func (v *Validator) save() {
	if dir := filepath.Dir(v.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("[backtest] save error: %v", err)
			return
		}
	}
	data, err := json.Marshal(state{Pending: v.pending, Results: v.results})
	if err != nil {
		log.Printf("[backtest] save error: %v", err)
		return
	}
	if err := os.WriteFile(v.path, data, 0o644); err != nil {
		log.Printf("[backtest] save error: %v", err)
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

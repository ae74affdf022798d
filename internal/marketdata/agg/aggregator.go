// Package agg builds 5-minute OHLC bars from a stream of price
// observations. When too little real history exists for the indicators,
// the gap is back-filled with deterministically generated bars so the
// downstream scorer always has a workable series.
package agg

import (
	"math"
	"sort"
	"time"

	"signal-enginev1/internal/model"
)

const (
	// BucketSize is the base bar interval.
	BucketSize = 5 * time.Minute

	// maxHistory caps the retained price observations (~enough for 200 bars).
	maxHistory = 2000

	// minRealBars is the threshold below which synthetic back-fill kicks in;
	// the scorer needs 50 bars, so 60 leaves headroom.
	minRealBars = 60

	// maxBars caps the emitted series.
	maxBars = 200
)

type observation struct {
	ts    time.Time
	price float64
}

// Aggregator accumulates price observations and converts them to bars.
// Not goroutine-safe: the engine serializes all access.
type Aggregator struct {
	history []observation
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// BuildBars records the observation (now, price) and rebuilds the bar
// series from the retained history. Observations are grouped into
// non-overlapping 5-minute buckets; each bucket's bar takes open = first
// price, close = last, high/low = extremes, volume = count x 100 (an
// activity proxy, not traded volume).
//
// If fewer than 60 real bars result, synthetic bars are prepended: each
// synthetic bar's center follows a sine of its distance into the past,
// scaled by 1.5% of the current price, so the back-fill is smooth and
// stable across calls at the same price. Synthetic bars carry the
// Synthetic flag and must never be persisted.
//
// The last bar's close (and high/low when exceeded) is forced to the live
// price so the visible series reflects the current tick even mid-bucket.
// Returns at most the 200 most recent bars, oldest first.
func (a *Aggregator) BuildBars(now time.Time, price float64) []model.Bar {
	a.history = append(a.history, observation{ts: now, price: price})
	if len(a.history) > maxHistory {
		a.history = a.history[len(a.history)-maxHistory:]
	}

	var bars []model.Bar
	if len(a.history) > 10 {
		bars = a.bucketize()
	}

	if len(bars) < minRealBars {
		bars = append(a.synthesize(now, price, minRealBars-len(bars)), bars...)
	}

	// Force the newest bar to include the live price.
	last := &bars[len(bars)-1]
	last.Close = round2(price)
	if price > last.High {
		last.High = round2(price)
	}
	if price < last.Low {
		last.Low = round2(price)
	}

	if len(bars) > maxBars {
		bars = bars[len(bars)-maxBars:]
	}
	return bars
}

// HistoryLen returns the number of retained observations.
func (a *Aggregator) HistoryLen() int { return len(a.history) }

// bucketize groups the observation history into 5-minute buckets and
// emits one bar per bucket in ascending time order.
func (a *Aggregator) bucketize() []model.Bar {
	type bucket struct {
		start  time.Time
		prices []float64
	}
	buckets := make(map[int64]*bucket)

	for _, obs := range a.history {
		start := bucketStart(obs.ts)
		key := start.Unix()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{start: start}
			buckets[key] = b
		}
		b.prices = append(b.prices, obs.price)
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	bars := make([]model.Bar, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		high := b.prices[0]
		low := b.prices[0]
		for _, p := range b.prices[1:] {
			if p > high {
				high = p
			}
			if p < low {
				low = p
			}
		}
		bars = append(bars, model.Bar{
			Time:   b.start.Format(model.TimeLayout),
			Open:   round2(b.prices[0]),
			High:   round2(high),
			Low:    round2(low),
			Close:  round2(b.prices[len(b.prices)-1]),
			Volume: int64(len(b.prices)) * 100,
		})
	}
	return bars
}

// synthesize generates count flagged back-fill bars ending just before the
// real series, oldest first. The sine period (0.3 rad per bar) keeps the
// pattern smooth rather than random, so derived levels stay stable.
func (a *Aggregator) synthesize(now time.Time, price float64, count int) []model.Bar {
	typicalRange := price * 0.015
	barRange := typicalRange * 0.1

	bars := make([]model.Bar, 0, count)
	for idx := count; idx >= 1; idx-- {
		wave := math.Sin(float64(idx)*0.3) * (typicalRange * 0.3)
		base := price + wave
		bars = append(bars, model.Bar{
			Time:      now.Add(-time.Duration(idx) * BucketSize).Format(model.TimeLayout),
			Open:      round2(base - barRange*0.2),
			High:      round2(base + barRange),
			Low:       round2(base - barRange),
			Close:     round2(base + barRange*0.2),
			Volume:    1000,
			Synthetic: true,
		})
	}
	return bars
}

// bucketStart truncates a timestamp to its 5-minute bucket boundary.
func bucketStart(t time.Time) time.Time {
	t = t.Truncate(time.Minute)
	return t.Add(-time.Duration(t.Minute()%5) * time.Minute)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package agg

import (
	"testing"
	"time"

	"signal-enginev1/internal/model"
)

var t0 = time.Date(2026, 2, 3, 10, 0, 0, 0, time.Local)

// feed pushes n observations spaced by step, returning the last bar set.
func feed(a *Aggregator, start time.Time, n int, step time.Duration, price func(i int) float64) []model.Bar {
	var bars []model.Bar
	for i := 0; i < n; i++ {
		bars = a.BuildBars(start.Add(time.Duration(i)*step), price(i))
	}
	return bars
}

func TestBuildBars_ColdStartIsSynthetic(t *testing.T) {
	a := New()
	bars := a.BuildBars(t0, 2000)

	if len(bars) != 60 {
		t.Fatalf("expected 60 back-filled bars on cold start, got %d", len(bars))
	}
	for i, b := range bars[:59] {
		if !b.Synthetic {
			t.Fatalf("bar %d: expected synthetic flag", i)
		}
	}
	// Live-price rule applies to the newest bar regardless of origin.
	if got := bars[59].Close; got != 2000 {
		t.Errorf("last close forced to live price: got %.2f", got)
	}
}

func TestBuildBars_SyntheticDeterministicAndOrdered(t *testing.T) {
	first := New().BuildBars(t0, 2000)
	second := New().BuildBars(t0, 2000)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("bar %d differs between identical runs", i)
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].Time >= first[i].Time {
			t.Fatalf("bars not in ascending time order at %d: %s >= %s", i, first[i-1].Time, first[i].Time)
		}
	}
}

func TestBuildBars_BucketOHLC(t *testing.T) {
	a := New()
	// 12 observations inside one 5-minute bucket: 2000, 2001, ... 2011.
	bars := feed(a, t0, 12, 20*time.Second, func(i int) float64 { return 2000 + float64(i) })

	// The real bar is the last one; everything before is back-fill.
	b := bars[len(bars)-1]
	if b.Synthetic {
		t.Fatal("expected a real bar for the observed bucket")
	}
	if b.Time != "2026.02.03 10:00:00" {
		t.Errorf("bucket start: got %s", b.Time)
	}
	if b.Open != 2000 || b.Close != 2011 || b.High != 2011 || b.Low != 2000 {
		t.Errorf("OHLC mismatch: %+v", b)
	}
	if b.Volume != 1200 {
		t.Errorf("volume = count*100: got %d", b.Volume)
	}
}

func TestBuildBars_SplitsBucketsOnBoundary(t *testing.T) {
	a := New()
	// 11 observations at 1-minute spacing starting 10:02 → buckets
	// 10:00 (3 obs), 10:05 (5 obs), 10:10 (3 obs).
	bars := feed(a, t0.Add(2*time.Minute), 11, time.Minute, func(i int) float64 { return 2000 })

	var real []model.Bar
	for _, b := range bars {
		if !b.Synthetic {
			real = append(real, b)
		}
	}
	if len(real) != 3 {
		t.Fatalf("expected 3 real buckets, got %d", len(real))
	}
	wantTimes := []string{"2026.02.03 10:00:00", "2026.02.03 10:05:00", "2026.02.03 10:10:00"}
	wantVols := []int64{300, 500, 300}
	for i, b := range real {
		if b.Time != wantTimes[i] {
			t.Errorf("bucket %d time: got %s want %s", i, b.Time, wantTimes[i])
		}
		if b.Volume != wantVols[i] {
			t.Errorf("bucket %d volume: got %d want %d", i, b.Volume, wantVols[i])
		}
	}
}

func TestBuildBars_LastBarTracksLiveTick(t *testing.T) {
	a := New()
	feed(a, t0, 20, 10*time.Second, func(i int) float64 { return 2000 })

	// Spike above the bucket's prior high mid-bucket.
	bars := a.BuildBars(t0.Add(201*time.Second), 2050)
	last := bars[len(bars)-1]
	if last.Close != 2050 {
		t.Errorf("close should equal live price, got %.2f", last.Close)
	}
	if last.High != 2050 {
		t.Errorf("high should extend to live price, got %.2f", last.High)
	}

	bars = a.BuildBars(t0.Add(202*time.Second), 1950)
	last = bars[len(bars)-1]
	if last.Low != 1950 {
		t.Errorf("low should extend to live price, got %.2f", last.Low)
	}
}

func TestBuildBars_CapsAt200(t *testing.T) {
	a := New()
	// One observation per bucket, 250 buckets.
	bars := feed(a, t0.Add(-250*5*time.Minute), 250, 5*time.Minute, func(i int) float64 { return 2000 + float64(i%7) })
	if len(bars) > 200 {
		t.Fatalf("expected at most 200 bars, got %d", len(bars))
	}
}

func TestBuildBars_HistoryBounded(t *testing.T) {
	a := New()
	feed(a, t0, 2500, time.Second, func(i int) float64 { return 2000 })
	if a.HistoryLen() != 2000 {
		t.Fatalf("expected history capped at 2000, got %d", a.HistoryLen())
	}
}

func TestBuildBars_BackfillToppedUpTo60(t *testing.T) {
	a := New()
	// 3 real buckets' worth of observations (spaced a minute apart).
	bars := feed(a, t0, 15, time.Minute, func(i int) float64 { return 2000 })

	if len(bars) != 60 {
		t.Fatalf("expected exactly 60 bars (real + back-fill), got %d", len(bars))
	}
	synth := 0
	for _, b := range bars {
		if b.Synthetic {
			synth++
		}
	}
	if synth != 60-3 { // 15 one-minute obs spanning 3 buckets
		t.Errorf("expected %d synthetic bars, got %d", 60-3, synth)
	}
}

package momentum

import (
	"testing"
	"time"

	"signal-enginev1/internal/model"
)

// ─── helpers ────────────────────────────────────────────────────────────────

func bar(t time.Time, o, h, l, c float64) model.Bar {
	return model.Bar{
		Time:   t.Format(model.TimeLayout),
		Open:   o,
		High:   h,
		Low:    l,
		Close:  c,
		Volume: 1200,
	}
}

// baseBars emits n five-minute bars where every hour's twelve bars climb by
// step (so each stitched hour closes step*12 above its open).
func baseBars(n int, start, step float64) []model.Bar {
	bars := make([]model.Bar, 0, n)
	t0 := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	p := start
	for i := 0; i < n; i++ {
		bars = append(bars, bar(t0.Add(time.Duration(i)*5*time.Minute), p, p+step+0.5, p-0.5, p+step))
		p += step
	}
	return bars
}

// ─── hourly path ────────────────────────────────────────────────────────────

func TestBuild_FromHourlyBars(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	hourly := []model.Bar{
		bar(t0, 2000, 2006, 1999, 2005),                // 4h ago: UP
		bar(t0.Add(time.Hour), 2005, 2006, 2001, 2002), // 3h ago: DOWN
		bar(t0.Add(2*time.Hour), 2002, 2008, 2001, 2007),
		bar(t0.Add(3*time.Hour), 2007, 2012, 2006, 2010),
	}

	w := Build(2011.5, nil, hourly)

	if w.Source != "MT5_H1" {
		t.Errorf("source = %q, want MT5_H1", w.Source)
	}
	if len(w.Hours) != 4 {
		t.Fatalf("hours len = %d, want 4", len(w.Hours))
	}

	// Hour 1 is the newest bar, hour 4 the oldest.
	h1 := w.Hours[0]
	if h1.Hour != 1 || h1.Open == nil || *h1.Open != 2007 || *h1.Close != 2010 {
		t.Errorf("hour 1 = %+v", h1)
	}
	if h1.Direction != Up || h1.Change != 3 {
		t.Errorf("hour 1 direction/change = %s %.2f", h1.Direction, h1.Change)
	}
	if h4 := w.Hours[3]; h4.Hour != 4 || *h4.Close != 2005 {
		t.Errorf("hour 4 = %+v", h4)
	}

	if w.Greens != 3 || w.Reds != 1 || w.Trend != Up {
		t.Errorf("tally = %d green / %d red / %s", w.Greens, w.Reds, w.Trend)
	}
	if w.Direction != Up || w.Change != 3 {
		t.Errorf("window direction/change = %s %.2f", w.Direction, w.Change)
	}
	if w.PriceHourAgo == nil || *w.PriceHourAgo != 2010 {
		t.Errorf("price_1h_ago = %v, want 2010", w.PriceHourAgo)
	}
	if w.Current != 2011.5 || w.DataPoints != 4 {
		t.Errorf("current/data_points = %.2f / %d", w.Current, w.DataPoints)
	}
}

func TestBuild_HourlyBarsPreferredOverBase(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	hourly := make([]model.Bar, 0, 4)
	for i := 0; i < 4; i++ {
		hourly = append(hourly, bar(t0.Add(time.Duration(i)*time.Hour), 2000, 2001, 1999, 2000.5))
	}

	w := Build(2000, baseBars(96, 1900, -1), hourly)

	if w.Source != "MT5_H1" {
		t.Errorf("source = %q, base bars should be ignored when hourly bars exist", w.Source)
	}
	if w.Trend != Up {
		t.Errorf("trend = %s, want UP from hourly bars", w.Trend)
	}
}

// ─── base-bar fallback ──────────────────────────────────────────────────────

func TestBuild_StitchedFromBaseBars(t *testing.T) {
	bars := baseBars(48, 2000, 0.5)

	w := Build(2025, bars, nil)

	if w.Source != "" {
		t.Errorf("source = %q, want empty on the stitched path", w.Source)
	}
	if len(w.Hours) != 4 {
		t.Fatalf("hours len = %d, want 4", len(w.Hours))
	}

	// Hour 1 covers the last 12 bars: open of the first, close of the last.
	h1 := w.Hours[0]
	if h1.Open == nil || *h1.Open != 2018 {
		t.Errorf("hour 1 open = %v, want 2018", h1.Open)
	}
	if h1.Close == nil || *h1.Close != 2024 {
		t.Errorf("hour 1 close = %v, want 2024", h1.Close)
	}
	if h1.Change != 6 || h1.Direction != Up {
		t.Errorf("hour 1 change/direction = %.2f %s", h1.Change, h1.Direction)
	}
	if h1.High != 2024.5 || h1.Low != 2017.5 {
		t.Errorf("hour 1 high/low = %.2f / %.2f", h1.High, h1.Low)
	}

	if h4 := w.Hours[3]; *h4.Open != 2000 || *h4.Close != 2006 {
		t.Errorf("hour 4 = %+v", h4)
	}

	if w.Greens != 4 || w.Trend != Up || w.DataPoints != 48 {
		t.Errorf("tally = %+v", w)
	}
}

func TestBuild_DowntrendMajority(t *testing.T) {
	w := Build(1950, baseBars(60, 2000, -0.5), nil)

	if w.Reds != 4 || w.Greens != 0 || w.Trend != Down {
		t.Errorf("tally = %d green / %d red / %s, want all red", w.Greens, w.Reds, w.Trend)
	}
	if w.Direction != Down {
		t.Errorf("direction = %s, want DOWN", w.Direction)
	}
}

// ─── collecting ─────────────────────────────────────────────────────────────

func TestBuild_CollectingWhenShort(t *testing.T) {
	w := Build(2001.234, baseBars(47, 2000, 0.5), nil)

	if w.Direction != Collecting || w.Trend != Flat {
		t.Errorf("direction/trend = %s / %s", w.Direction, w.Trend)
	}
	if w.Current != 2001.23 {
		t.Errorf("current = %.2f, want 2001.23", w.Current)
	}
	if w.DataPoints != 47 {
		t.Errorf("data_points = %d, want 47", w.DataPoints)
	}
	if len(w.Hours) != 4 {
		t.Fatalf("hours len = %d, want 4", len(w.Hours))
	}
	for i, h := range w.Hours {
		if h.Hour != i+1 || h.Direction != Collecting || h.Open != nil || h.Price != nil {
			t.Errorf("hour %d = %+v, want placeholder", i+1, h)
		}
	}
}

func TestBuild_CollectingWithNoBars(t *testing.T) {
	w := Build(2000, nil, nil)

	if w.DataPoints != 0 || w.Direction != Collecting {
		t.Errorf("window = %+v, want empty COLLECTING", w)
	}
	if w.PriceHourAgo != nil {
		t.Errorf("price_1h_ago = %v, want nil", w.PriceHourAgo)
	}
}

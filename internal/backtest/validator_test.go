package backtest

import (
	"path/filepath"
	"testing"
	"time"
)

var origin = time.Date(2026, 2, 3, 10, 0, 0, 0, time.Local)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "backtest_data.json"))
}

func TestResolve_BuyWinAt110Pips(t *testing.T) {
	v := newTestValidator(t)
	v.Track(Buy, 2000.0, 80, origin)

	resolved := v.Resolve(origin.Add(ResolveAfter), 2001.10)
	if len(resolved) != 1 {
		t.Fatalf("expected 1 resolution, got %d", len(resolved))
	}
	r := resolved[0]
	if !r.Win {
		t.Errorf("110 pips should be a BUY win")
	}
	if r.Pips != 110.0 {
		t.Errorf("pips: got %.1f want 110.0", r.Pips)
	}

	res := v.Results()
	if res.Total != 1 || res.Wins != 1 || res.BuyTotal != 1 || res.BuyWins != 1 {
		t.Errorf("counters wrong: %+v", res)
	}
	if v.PendingCount() != 0 {
		t.Errorf("resolved entry should leave the queue, %d remain", v.PendingCount())
	}
}

func TestResolve_BuyLossAt90Pips(t *testing.T) {
	v := newTestValidator(t)
	v.Track(Buy, 2000.0, 80, origin)

	resolved := v.Resolve(origin.Add(ResolveAfter), 2000.90)
	if len(resolved) != 1 || resolved[0].Win {
		t.Fatalf("90 pips should be a BUY loss: %+v", resolved)
	}
	res := v.Results()
	if res.Total != 1 || res.Losses != 1 || res.BuyTotal != 1 || res.BuyWins != 0 {
		t.Errorf("counters wrong: %+v", res)
	}
}

func TestResolve_SellDirectionality(t *testing.T) {
	v := newTestValidator(t)
	v.Track(Sell, 2000.0, 75, origin)

	// Price dropped 1.50 → 150 pips in the SELL direction.
	resolved := v.Resolve(origin.Add(ResolveAfter), 1998.50)
	if len(resolved) != 1 || !resolved[0].Win {
		t.Fatalf("expected SELL win: %+v", resolved)
	}
	if resolved[0].Pips != 150.0 {
		t.Errorf("pips: got %.1f want 150.0", resolved[0].Pips)
	}
	res := v.Results()
	if res.SellTotal != 1 || res.SellWins != 1 {
		t.Errorf("sell counters wrong: %+v", res)
	}
}

func TestResolve_HoldWinsWithinRange(t *testing.T) {
	v := newTestValidator(t)
	v.Track(Hold, 2000.0, 40, origin)
	v.Track(Hold, 2000.0, 40, origin.Add(2*time.Second))

	// 190 pips absolute move: within 2x threshold → win.
	resolved := v.Resolve(origin.Add(ResolveAfter+time.Second), 2001.90)
	if len(resolved) != 1 {
		// Second entry is a second too young at this instant.
		t.Fatalf("expected exactly 1 resolution, got %d", len(resolved))
	}
	if !resolved[0].Win {
		t.Error("190-pip HOLD should win")
	}

	// 210 pips → loss; HOLD leaves direction counters untouched.
	resolved = v.Resolve(origin.Add(2*ResolveAfter), 2002.10)
	if len(resolved) != 1 || resolved[0].Win {
		t.Fatalf("210-pip HOLD should lose: %+v", resolved)
	}
	res := v.Results()
	if res.BuyTotal != 0 || res.SellTotal != 0 {
		t.Errorf("HOLD must not touch direction counters: %+v", res)
	}
	if res.Total != 2 || res.Wins != 1 || res.Losses != 1 {
		t.Errorf("aggregate counters wrong: %+v", res)
	}
}

func TestResolve_TooYoungStaysPending(t *testing.T) {
	v := newTestValidator(t)
	v.Track(Buy, 2000.0, 80, origin)

	resolved := v.Resolve(origin.Add(ResolveAfter-time.Minute), 2005.0)
	if len(resolved) != 0 {
		t.Fatalf("nothing should resolve before the delay, got %d", len(resolved))
	}
	if v.PendingCount() != 1 {
		t.Errorf("entry should stay pending")
	}
}

func TestTrack_QueueCappedAt20(t *testing.T) {
	v := newTestValidator(t)
	for i := 0; i < 25; i++ {
		v.Track(Buy, 2000+float64(i), 60, origin.Add(time.Duration(i)*time.Minute))
	}
	if v.PendingCount() != 20 {
		t.Fatalf("expected queue capped at 20, got %d", v.PendingCount())
	}
	// The 5 oldest were dropped; all 20 remaining resolve.
	resolved := v.Resolve(origin.Add(ResolveAfter+time.Hour), 2100)
	if len(resolved) != 20 {
		t.Errorf("expected 20 resolutions, got %d", len(resolved))
	}
	if resolved[0].Entry != 2005 {
		t.Errorf("oldest surviving entry should be the 6th tracked, got %.0f", resolved[0].Entry)
	}
}

func TestPersistence_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backtest_data.json")
	v := New(path)
	v.Track(Buy, 2000.0, 80, origin)
	v.Track(Sell, 2010.0, 70, origin.Add(time.Minute))
	v.Resolve(origin.Add(ResolveAfter), 2002.0) // resolves the BUY (200 pips, win)

	reloaded := New(path)
	reloaded.Load()
	if reloaded.PendingCount() != 1 {
		t.Fatalf("expected 1 pending after reload, got %d", reloaded.PendingCount())
	}
	res := reloaded.Results()
	if res.Total != 1 || res.Wins != 1 || res.BuyWins != 1 {
		t.Errorf("results lost in round-trip: %+v", res)
	}
}

func TestLoad_MissingFileStartsEmpty(t *testing.T) {
	v := New(filepath.Join(t.TempDir(), "absent.json"))
	v.Load()
	if v.PendingCount() != 0 || v.Results().Total != 0 {
		t.Error("expected cold state")
	}
}

func TestWinRate_ZeroTotals(t *testing.T) {
	v := newTestValidator(t)
	wr := v.WinRate()
	if wr.WinRate != 0 || wr.BuyRate != 0 || wr.SellRate != 0 {
		t.Errorf("rates must be 0 with no resolutions: %+v", wr)
	}
}

func TestWinRate_Percentages(t *testing.T) {
	v := newTestValidator(t)
	v.Track(Buy, 2000.0, 80, origin)
	v.Track(Buy, 2000.0, 80, origin)
	v.Track(Sell, 2000.0, 80, origin)
	v.Resolve(origin.Add(ResolveAfter), 2002.0) // both BUYs win, SELL loses

	wr := v.WinRate()
	if wr.Total != 3 || wr.Wins != 2 || wr.Losses != 1 {
		t.Fatalf("totals wrong: %+v", wr)
	}
	if wr.WinRate != 66.7 {
		t.Errorf("win rate: got %.1f want 66.7", wr.WinRate)
	}
	if wr.BuyRate != 100.0 || wr.SellRate != 0.0 {
		t.Errorf("direction rates: %+v", wr)
	}
}

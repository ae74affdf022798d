package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"signal-enginev1/internal/backtest"
	"signal-enginev1/internal/model"
)

func newArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := New(Config{
		DBPath: filepath.Join(t.TempDir(), "bars.db"),
		Symbol: "XAUEUR",
	})
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestUpsertBars_SkipsSynthetic(t *testing.T) {
	a := newArchive(t)

	n, err := a.UpsertBars([]model.Bar{
		{Time: "2026.03.02 09:00:00", Open: 2000, High: 2001, Low: 1999, Close: 2000.5, Volume: 1200},
		{Time: "2026.03.02 09:05:00", Open: 2000.5, High: 2002, Low: 2000, Close: 2001, Volume: 900},
		{Time: "2026.03.02 09:10:00", Open: 2001, High: 2001, Low: 2001, Close: 2001, Volume: 1000, Synthetic: true},
		{Open: 2001, Close: 2001}, // empty timestamp
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted = %d, want 2", n)
	}

	bars, err := a.ReadBars(0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("read back %d bars, want 2", len(bars))
	}
	if bars[0].Time != "2026.03.02 09:00:00" || bars[1].Close != 2001 {
		t.Errorf("bars = %+v", bars)
	}
}

func TestUpsertBars_ReplacesOnCollision(t *testing.T) {
	a := newArchive(t)

	if _, err := a.UpsertBars([]model.Bar{{Time: "2026.03.02 09:00:00", Open: 2000, High: 2001, Low: 1999, Close: 2000.5, Volume: 1200}}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if _, err := a.UpsertBars([]model.Bar{{Time: "2026.03.02 09:00:00", Open: 2000, High: 2003, Low: 1999, Close: 2002, Volume: 1500}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	bars, err := a.ReadBars(0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("bars = %d, want 1 after replace", len(bars))
	}
	if bars[0].Close != 2002 || bars[0].Volume != 1500 {
		t.Errorf("bar = %+v, want replaced values", bars[0])
	}
}

func TestLastTimestamp(t *testing.T) {
	a := newArchive(t)

	ts, err := a.LastTimestamp()
	if err != nil {
		t.Fatalf("empty last timestamp: %v", err)
	}
	if ts != "" {
		t.Errorf("ts = %q, want empty on fresh archive", ts)
	}

	a.UpsertBars([]model.Bar{
		{Time: "2026.03.02 09:00:00", Open: 2000, High: 2001, Low: 1999, Close: 2000.5, Volume: 1200},
		{Time: "2026.03.02 09:05:00", Open: 2000.5, High: 2002, Low: 2000, Close: 2001, Volume: 900},
	})

	ts, err = a.LastTimestamp()
	if err != nil {
		t.Fatalf("last timestamp: %v", err)
	}
	if ts != "2026.03.02 09:05:00" {
		t.Errorf("ts = %q", ts)
	}
}

func TestRecordValidation(t *testing.T) {
	a := newArchive(t)

	err := a.RecordValidation(backtest.Resolution{
		Signal: backtest.Buy,
		Entry:  2000,
		Exit:   2001.5,
		Pips:   150,
		Win:    true,
		Time:   "13:30:00",
	}, time.Date(2026, 3, 2, 13, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	var count int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM validations WHERE symbol = 'XAUEUR' AND win = 1`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("validations = %d, want 1", count)
	}
}
